// Package normalizer turns extracted document text into canonical tokens and
// per-document frequency tables. The same token rules are applied to query
// terms so that queries and the index share one canonical space.
//
// Plural handling is a crude suffix strip, not a stemmer: words that end in
// "s" or "es" naturally are trimmed as well ("gas" becomes "ga").
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/freqstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
)

const minTokenLength = 2

var (
	hyphenBreaks = strings.NewReplacer("-\r\n", "", "-\n", "")
	lineBreaks   = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
)

// Result is the outcome of normalizing one document.
type Result struct {
	// Tokens holds the surviving tokens in original occurrence order.
	Tokens []string
	// Record is the token frequency table, highest count first.
	Record freqstore.Record
}

// Joined returns the space-joined token sequence persisted as the
// normalized-text artifact of a document.
func (r Result) Joined() string {
	return strings.Join(r.Tokens, " ")
}

// Normalizer normalizes whole documents against a fixed stopword set.
type Normalizer struct {
	stopwords StopwordSet
}

// New returns a Normalizer. A nil stopword set is a configuration error:
// documents must never be indexed without their stopwords removed.
func New(stopwords StopwordSet) (*Normalizer, error) {
	if stopwords == nil {
		return nil, apperrors.New(apperrors.ErrConfiguration, 0, "stopword set is required before normalizing")
	}
	return &Normalizer{stopwords: stopwords}, nil
}

// Token normalizes a single raw word.
func (n *Normalizer) Token(raw string) string {
	return NormalizeToken(raw, n.stopwords)
}

// Document normalizes a block of extracted text. Words split across lines
// with a trailing hyphen are joined before tokenizing.
func (n *Normalizer) Document(text string) Result {
	text = hyphenBreaks.Replace(text)
	text = lineBreaks.Replace(text)
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if t := n.Token(word); t != "" {
			tokens = append(tokens, t)
		}
	}
	return Result{
		Tokens: tokens,
		Record: Count(tokens),
	}
}

// NormalizeToken maps a raw word onto its canonical token, or "" when the
// word does not survive. A nil stopword set rejects nothing, which is what
// the query engines use: stopwords are never indexed, so looking them up is
// already a miss.
func NormalizeToken(raw string, stopwords StopwordSet) string {
	t := stripPlural(Fold(raw))
	if len(t) < minTokenLength {
		return ""
	}
	if stopwords.Contains(t) {
		return ""
	}
	return t
}

// QueryTerms splits a query on whitespace and normalizes every word, dropping
// those that normalize to nothing.
func QueryTerms(query string) []string {
	words := strings.Fields(query)
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if t := NormalizeToken(w, nil); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// Fold strips diacritics, keeps ASCII letters and hyphens that sit between
// two ASCII letters, and lowercases the result. Fold is idempotent.
func Fold(raw string) string {
	decomposed := []rune(StripDiacritics(raw))
	var b strings.Builder
	b.Grow(len(decomposed))
	for i, r := range decomposed {
		switch {
		case isASCIILetter(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' && i > 0 && i < len(decomposed)-1 &&
			isASCIILetter(decomposed[i-1]) && isASCIILetter(decomposed[i+1]):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StripDiacritics decomposes s (NFD) and drops the nonspacing marks, so "é"
// becomes "e" and "ç" becomes "c".
func StripDiacritics(s string) string {
	// Chained transformers carry state; each call gets its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// stripPlural drops a trailing "es" (length > 3) or "s" (length > 2). A hyphen
// exposed at the end by the strip is trimmed too.
func stripPlural(t string) string {
	switch {
	case len(t) > 3 && strings.HasSuffix(t, "es"):
		t = t[:len(t)-2]
	case len(t) > 2 && strings.HasSuffix(t, "s"):
		t = t[:len(t)-1]
	default:
		return t
	}
	return strings.TrimSuffix(t, "-")
}

// Count builds a frequency record from a token sequence. Higher counts come
// first; equal counts keep the order in which the tokens first occurred.
func Count(tokens []string) freqstore.Record {
	index := make(map[string]int, len(tokens))
	record := make(freqstore.Record, 0, len(tokens)/2)
	for _, t := range tokens {
		if i, ok := index[t]; ok {
			record[i].Count++
			continue
		}
		index[t] = len(record)
		record = append(record, freqstore.TermCount{Term: t, Count: 1})
	}
	record.Sort()
	return record
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
