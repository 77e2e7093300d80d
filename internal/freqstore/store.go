// Package freqstore persists the frequency store: a JSON object mapping each
// document identifier to its ordered [token, count] list.
//
//	{ "A.pdf": [["agua", 3], ["sol", 1]], "B.pdf": [["sol", 2]] }
//
// The normalization run writes it; both query engines load it verbatim.
// Paths ending in ".zst" are read and written zstd-compressed.
package freqstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
)

const compressedExt = ".zst"

// Store maps document identifiers to their frequency records.
type Store struct {
	docs map[string]Record
}

// New returns an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]Record)}
}

// Put adds or replaces the record of id.
func (s *Store) Put(id string, record Record) {
	s.docs[id] = record.clone()
}

// Get returns the record of id.
func (s *Store) Get(id string) (Record, bool) {
	r, ok := s.docs[id]
	return r, ok
}

// Delete removes id from the store.
func (s *Store) Delete(id string) {
	delete(s.docs, id)
}

// Len returns the number of documents.
func (s *Store) Len() int {
	return len(s.docs)
}

// IDs returns every document identifier in lexicographic order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TermCount returns the number of distinct tokens across all documents.
func (s *Store) TermCount() int {
	terms := make(map[string]struct{})
	for _, r := range s.docs {
		for _, tc := range r {
			terms[tc.Term] = struct{}{}
		}
	}
	return len(terms)
}

// Merge copies every record of other into s, replacing records that share an
// identifier.
func (s *Store) Merge(other *Store) {
	for id, r := range other.docs {
		s.Put(id, r)
	}
}

// MarshalJSON emits the store with identifiers in sorted order.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.docs)
}

// UnmarshalJSON parses and validates the store shape.
func (s *Store) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("store is null")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("store is not an object of records: %w", err)
	}
	docs := make(map[string]Record, len(raw))
	for id, value := range raw {
		if id == "" {
			return fmt.Errorf("empty document identifier")
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return fmt.Errorf("document %q: record is null", id)
		}
		var record Record
		if err := json.Unmarshal(value, &record); err != nil {
			return fmt.Errorf("document %q: %w", id, err)
		}
		if err := record.Validate(); err != nil {
			return fmt.Errorf("document %q: %w", id, err)
		}
		docs[id] = record.clone()
	}
	s.docs = docs
	return nil
}

// Load reads the store at path. A missing file yields ErrStoreNotFound and a
// file that does not parse to the store shape yields ErrStoreCorrupt.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.ErrStoreNotFound, 0, "%s", path)
		}
		return nil, fmt.Errorf("opening frequency store %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if isCompressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrStoreCorrupt, 0, "%s: %v", path, err)
		}
		defer dec.Close()
		r = dec
	}
	s, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// Decode parses a store from r.
func Decode(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrStoreCorrupt, 0, "reading store: %v", err)
	}
	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, apperrors.Newf(apperrors.ErrStoreCorrupt, 0, "%v", err)
	}
	return s, nil
}

// Encode writes s to w as indented JSON.
func (s *Store) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Save atomically replaces the store at path: it writes a .tmp file next to
// it, syncs, and renames on success.
func (s *Store) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp store file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	if isCompressed(path) {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("creating zstd writer: %w", err)
		}
		if err := s.Encode(enc); err != nil {
			enc.Close()
			return fmt.Errorf("writing store: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flushing zstd writer: %w", err)
		}
	} else if err := s.Encode(f); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing store file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing store file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming store file: %w", err)
	}
	return nil
}

func isCompressed(path string) bool {
	return strings.HasSuffix(path, compressedExt)
}
