package boolean

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/normalizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
)

// Op is the action a Step applies to the evaluation stack.
type Op int

const (
	// OpPush pushes the operand's document set.
	OpPush Op = iota
	// OpAnd pops the left operand and pushes its intersection with the operand.
	OpAnd
	// OpOr pops the left operand and pushes its union with the operand.
	OpOr
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return "PUSH"
	}
}

// Operand is a single term, optionally negated.
type Operand struct {
	Raw     string
	Term    string
	Negated bool
}

func (o Operand) String() string {
	term := o.Term
	if term == "" {
		term = `""`
	}
	if o.Negated {
		return "NOT " + term
	}
	return term
}

// Step is one left-to-right evaluation step.
type Step struct {
	Op      Op
	Operand Operand
}

// QueryPlan is a parsed boolean query. There is no operator precedence:
// steps run strictly in order, so "a OR b AND c" means "(a OR b) AND c".
type QueryPlan struct {
	Steps    []Step
	RawQuery string
}

// Terms returns the normalized terms referenced by the plan, in order.
func (p *QueryPlan) Terms() []string {
	terms := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		terms = append(terms, s.Operand.Term)
	}
	return terms
}

// String renders the plan in canonical form. Queries with equal canonical
// forms evaluate to the same result on any corpus.
func (p *QueryPlan) String() string {
	parts := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		if s.Op == OpPush {
			parts = append(parts, s.Operand.String())
			continue
		}
		parts = append(parts, s.Op.String()+" "+s.Operand.String())
	}
	return strings.Join(parts, " ")
}

// Parse turns a query into a QueryPlan. Operator keywords are matched
// case-insensitively; every other word is normalized like indexed text. The
// word after NOT, AND or OR is always read as a term.
func Parse(query string) (*QueryPlan, error) {
	words := strings.Fields(query)
	plan := &QueryPlan{
		Steps:    make([]Step, 0, len(words)),
		RawQuery: query,
	}
	depth := 0
	for i := 0; i < len(words); {
		switch upper := strings.ToUpper(words[i]); upper {
		case "NOT":
			if i+1 >= len(words) {
				return nil, malformed("NOT must be followed by a term")
			}
			plan.Steps = append(plan.Steps, Step{Op: OpPush, Operand: operand(words[i+1], true)})
			depth++
			i += 2
		case "AND", "OR":
			if depth == 0 {
				return nil, malformed("%s has no left operand", upper)
			}
			if i+1 >= len(words) {
				return nil, malformed("%s has no right operand", upper)
			}
			op := OpAnd
			if upper == "OR" {
				op = OpOr
			}
			if strings.EqualFold(words[i+1], "NOT") {
				if i+2 >= len(words) {
					return nil, malformed("NOT must be followed by a term")
				}
				plan.Steps = append(plan.Steps, Step{Op: op, Operand: operand(words[i+2], true)})
				i += 3
			} else {
				plan.Steps = append(plan.Steps, Step{Op: op, Operand: operand(words[i+1], false)})
				i += 2
			}
		default:
			plan.Steps = append(plan.Steps, Step{Op: OpPush, Operand: operand(words[i], false)})
			depth++
			i++
		}
	}
	return plan, nil
}

func operand(raw string, negated bool) Operand {
	return Operand{
		Raw:     raw,
		Term:    normalizer.NormalizeToken(raw, nil),
		Negated: negated,
	}
}

func malformed(format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrMalformedQuery, 0, format, args...)
}
