package freqstore

import (
	"encoding/json"
	"fmt"
	"sort"
)

// TermCount is one [token, count] entry of a document record.
type TermCount struct {
	Term  string
	Count int
}

// MarshalJSON encodes the entry as a two-element array.
func (tc TermCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{tc.Term, tc.Count})
}

// UnmarshalJSON accepts exactly ["token", positive-integer].
func (tc *TermCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("entry is not an array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("entry has %d elements, want [token, count]", len(pair))
	}
	var term string
	if err := json.Unmarshal(pair[0], &term); err != nil {
		return fmt.Errorf("entry token is not a string: %w", err)
	}
	var count int
	if err := json.Unmarshal(pair[1], &count); err != nil {
		return fmt.Errorf("count of %q is not an integer: %w", term, err)
	}
	tc.Term = term
	tc.Count = count
	return nil
}

// Record is the ordered term frequency list of one document.
type Record []TermCount

// Sort orders the record by descending count, keeping the current order of
// equal counts.
func (r Record) Sort() {
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Count > r[j].Count
	})
}

// MaxCount returns the highest count in the record, or 0 for an empty one.
func (r Record) MaxCount() int {
	maxCount := 0
	for _, tc := range r {
		if tc.Count > maxCount {
			maxCount = tc.Count
		}
	}
	return maxCount
}

// Count returns the count of term, 0 when absent.
func (r Record) Count(term string) int {
	for _, tc := range r {
		if tc.Term == term {
			return tc.Count
		}
	}
	return 0
}

// Validate checks that every entry has a non-empty token, a positive count,
// and that no token is listed twice.
func (r Record) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, tc := range r {
		if tc.Term == "" {
			return fmt.Errorf("empty token")
		}
		if tc.Count < 1 {
			return fmt.Errorf("token %q has non-positive count %d", tc.Term, tc.Count)
		}
		if _, dup := seen[tc.Term]; dup {
			return fmt.Errorf("token %q listed twice", tc.Term)
		}
		seen[tc.Term] = struct{}{}
	}
	return nil
}

func (r Record) clone() Record {
	if r == nil {
		return Record{}
	}
	out := make(Record, len(r))
	copy(out, r)
	return out
}
