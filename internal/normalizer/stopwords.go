package normalizer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
)

// StopwordSet holds accent-stripped, lowercased stopwords.
type StopwordSet map[string]struct{}

// NewStopwordSet builds a set from raw words, normalizing each the same way
// stopword files are normalized.
func NewStopwordSet(words ...string) StopwordSet {
	set := make(StopwordSet, len(words))
	for _, w := range words {
		set.add(w)
	}
	return set
}

// Contains reports membership. A nil set contains nothing.
func (s StopwordSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Len returns the number of stopwords.
func (s StopwordSet) Len() int {
	return len(s)
}

func (s StopwordSet) add(raw string) {
	w := strings.TrimSpace(raw)
	if w == "" {
		return
	}
	s[strings.ToLower(StripDiacritics(w))] = struct{}{}
}

// LoadStopwords reads a one-word-per-line stopword file. A missing file is a
// configuration error; there is no built-in fallback list.
func LoadStopwords(path string) (StopwordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.ErrConfiguration, 0, "stopword file not found: %s", path)
		}
		return nil, fmt.Errorf("opening stopword file %s: %w", path, err)
	}
	defer f.Close()
	set, err := ReadStopwords(f)
	if err != nil {
		return nil, fmt.Errorf("reading stopword file %s: %w", path, err)
	}
	return set, nil
}

// ReadStopwords parses stopwords from r. Input that is not valid UTF-8 is
// decoded as Latin-1.
func ReadStopwords(r io.Reader) (StopwordSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		data, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decoding latin-1 stopwords: %w", err)
		}
	}
	set := make(StopwordSet)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		set.add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}
