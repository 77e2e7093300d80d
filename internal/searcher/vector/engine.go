// Package vector ranks documents by cosine similarity between TF-IDF weighted
// query and document vectors built from a frequency store snapshot.
package vector

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/freqstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/normalizer"
)

// DefaultLimit is the number of results returned when no positive limit is
// given.
const DefaultLimit = 10

// Result is a ranked document.
type Result struct {
	ID    string  `json:"doc_id"`
	Score float64 `json:"score"`
}

type posting struct {
	doc    int
	weight float64
}

type termWeight struct {
	term   string
	weight float64
}

// Engine holds the term weight table and document norms. Documents are kept
// in lexicographic identifier order, which is also the tie-break order of
// equal scores. An Engine is immutable after New and safe for concurrent
// queries.
type Engine struct {
	ids      []string
	ordinals map[string]int
	idf      map[string]float64
	postings map[string][]posting
	norms    []float64
	logger   *slog.Logger
}

// New computes idf, per-document weights and norms for every document of
// store.
func New(store *freqstore.Store) *Engine {
	ids := store.IDs()
	e := &Engine{
		ids:      ids,
		ordinals: make(map[string]int, len(ids)),
		idf:      make(map[string]float64),
		postings: make(map[string][]posting),
		norms:    make([]float64, len(ids)),
		logger:   slog.Default().With("component", "vector-engine"),
	}

	docFreq := make(map[string]int)
	for _, id := range ids {
		record, _ := store.Get(id)
		for _, tc := range record {
			docFreq[tc.Term]++
		}
	}
	for term, df := range docFreq {
		e.idf[term] = computeIDF(len(ids), df)
	}

	for ord, id := range ids {
		e.ordinals[id] = ord
		record, _ := store.Get(id)
		maxFreq := record.MaxCount()
		var sumSquares float64
		for _, tc := range record {
			w := computeTF(tc.Count, maxFreq) * e.idf[tc.Term]
			e.postings[tc.Term] = append(e.postings[tc.Term], posting{doc: ord, weight: w})
			sumSquares += w * w
		}
		e.norms[ord] = math.Sqrt(sumSquares)
	}
	e.logger.Info("term weight table built",
		"documents", len(ids),
		"terms", len(e.idf),
	)
	return e
}

// Load reads the frequency store at path and builds an Engine from it.
func Load(path string) (*Engine, error) {
	store, err := freqstore.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading vector model: %w", err)
	}
	return New(store), nil
}

// Search returns up to limit documents with positive similarity to query,
// best first. Tokens absent from the corpus are ignored; a query made only of
// such tokens returns no results.
func (e *Engine) Search(query string, limit int) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	qv := e.queryVector(query)
	var qSquares float64
	for _, tw := range qv {
		qSquares += tw.weight * tw.weight
	}
	qNorm := math.Sqrt(qSquares)
	if qNorm == 0 {
		return []Result{}
	}

	dots := make([]float64, len(e.ids))
	for _, tw := range qv {
		for _, p := range e.postings[tw.term] {
			dots[p.doc] += tw.weight * p.weight
		}
	}

	results := make([]Result, 0)
	for ord, dot := range dots {
		sim := cosine(dot, qNorm, e.norms[ord])
		if sim <= 0 {
			continue
		}
		results = append(results, Result{ID: e.ids[ord], Score: sim})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// IDF returns the inverse document frequency of an indexed token, 0 for
// unknown ones.
func (e *Engine) IDF(term string) float64 {
	return e.idf[term]
}

// Norm returns the vector norm of document id, 0 for unknown documents.
func (e *Engine) Norm(id string) float64 {
	ord, ok := e.ordinals[id]
	if !ok {
		return 0
	}
	return e.norms[ord]
}

// DocCount returns the number of loaded documents.
func (e *Engine) DocCount() int {
	return len(e.ids)
}

// TermCount returns the number of distinct tokens in the idf table.
func (e *Engine) TermCount() int {
	return len(e.idf)
}

// queryVector weights the query terms known to the corpus. The tf
// denominator is the highest count among all normalized query terms, known
// or not. Terms keep the frequency record order so that dot products are
// summed in a fixed order.
func (e *Engine) queryVector(query string) []termWeight {
	record := normalizer.Count(normalizer.QueryTerms(query))
	maxFreq := record.MaxCount()
	vec := make([]termWeight, 0, len(record))
	for _, tc := range record {
		idf, known := e.idf[tc.Term]
		if !known {
			continue
		}
		vec = append(vec, termWeight{term: tc.Term, weight: computeTF(tc.Count, maxFreq) * idf})
	}
	return vec
}

func computeTF(freq, maxFreq int) float64 {
	if maxFreq < 1 {
		maxFreq = 1
	}
	return 0.5 + 0.5*float64(freq)/float64(maxFreq)
}

func computeIDF(totalDocs, docFreq int) float64 {
	if docFreq == 0 {
		return 0
	}
	return math.Log10(float64(totalDocs) / float64(docFreq))
}

// cosine divides the dot product by both norms, guarding zero norms and
// clamping rounding noise into [0, 1].
func cosine(dot, qNorm, dNorm float64) float64 {
	if qNorm == 0 || dNorm == 0 {
		return 0
	}
	sim := dot / (qNorm * dNorm)
	if sim > 1 {
		return 1
	}
	return sim
}
