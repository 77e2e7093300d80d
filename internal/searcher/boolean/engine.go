// Package boolean evaluates AND / OR / NOT queries against an inverted index
// built from a frequency store snapshot.
package boolean

import (
	"fmt"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/freqstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/normalizer"
)

// Engine holds the inverted index. Documents are numbered in lexicographic
// identifier order, so iterating a posting bitmap yields sorted identifiers.
// An Engine is immutable after New and safe for concurrent queries.
type Engine struct {
	ids    []string
	index  map[string]*roaring.Bitmap
	all    *roaring.Bitmap
	logger *slog.Logger
}

// New builds the inverted index from store.
func New(store *freqstore.Store) *Engine {
	ids := store.IDs()
	e := &Engine{
		ids:    ids,
		index:  make(map[string]*roaring.Bitmap),
		all:    roaring.New(),
		logger: slog.Default().With("component", "boolean-engine"),
	}
	for ord, id := range ids {
		docNum := uint32(ord)
		e.all.Add(docNum)
		record, _ := store.Get(id)
		for _, tc := range record {
			if tc.Count <= 0 {
				continue
			}
			postings, ok := e.index[tc.Term]
			if !ok {
				postings = roaring.New()
				e.index[tc.Term] = postings
			}
			postings.Add(docNum)
		}
	}
	for _, postings := range e.index {
		postings.RunOptimize()
	}
	e.all.RunOptimize()
	e.logger.Info("inverted index built",
		"documents", len(ids),
		"terms", len(e.index),
	)
	return e
}

// Load reads the frequency store at path and builds an Engine from it.
func Load(path string) (*Engine, error) {
	store, err := freqstore.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading boolean model: %w", err)
	}
	return New(store), nil
}

// Evaluate parses and runs query, returning matching identifiers sorted
// lexicographically. Unknown terms match nothing.
func (e *Engine) Evaluate(query string) ([]string, error) {
	plan, err := Parse(query)
	if err != nil {
		return nil, err
	}
	return e.Execute(plan)
}

// Execute runs a plan. When a query leaves several values on the stack
// (adjacent terms with no operator) the first one pushed is the result. A
// binary step with no left operand yields ErrMalformedQuery; Parse never
// produces one.
func (e *Engine) Execute(plan *QueryPlan) ([]string, error) {
	stack := make([]*roaring.Bitmap, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		right := e.resolve(step.Operand)
		switch step.Op {
		case OpPush:
			stack = append(stack, right)
		case OpAnd, OpOr:
			if len(stack) == 0 {
				return nil, malformed("%s has no left operand", step.Op)
			}
			left := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if step.Op == OpAnd {
				stack = append(stack, roaring.And(left, right))
			} else {
				stack = append(stack, roaring.Or(left, right))
			}
		}
	}
	if len(stack) == 0 {
		return []string{}, nil
	}
	if len(stack) > 1 {
		e.logger.Debug("query left several operands, using the first",
			"query", plan.RawQuery,
			"operands", len(stack),
		)
	}
	return e.identifiers(stack[0]), nil
}

// Lookup returns the documents containing the normalized form of term.
func (e *Engine) Lookup(term string) []string {
	return e.identifiers(e.postings(normalizer.NormalizeToken(term, nil)))
}

// DocumentIDs returns every loaded identifier in sorted order.
func (e *Engine) DocumentIDs() []string {
	out := make([]string, len(e.ids))
	copy(out, e.ids)
	return out
}

// DocCount returns the number of indexed documents.
func (e *Engine) DocCount() int {
	return len(e.ids)
}

// TermCount returns the number of distinct indexed tokens.
func (e *Engine) TermCount() int {
	return len(e.index)
}

func (e *Engine) resolve(o Operand) *roaring.Bitmap {
	postings := e.postings(o.Term)
	if o.Negated {
		return roaring.AndNot(e.all, postings)
	}
	return postings
}

// postings returns the shared bitmap for term. Callers must not mutate it;
// the roaring package-level And/Or/AndNot used above allocate new bitmaps.
func (e *Engine) postings(term string) *roaring.Bitmap {
	if p, ok := e.index[term]; ok {
		return p
	}
	return roaring.New()
}

func (e *Engine) identifiers(b *roaring.Bitmap) []string {
	out := make([]string, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, e.ids[it.Next()])
	}
	return out
}
