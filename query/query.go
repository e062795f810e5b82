package query

import (
	"fmt"
	"time"

	"ridx/encoding"
	"ridx/metrics"
	"ridx/partition"
	"ridx/region"
	"ridx/univ"
)

// TermKind distinguishes the three query-level postfix term shapes
// (§4.8: constraint term, unary complement, N-ary operator).
type TermKind int

const (
	TermConstraint TermKind = iota
	TermComplement
	TermNAry
)

// Term is one element of a top-level query postfix expression.
type Term struct {
	Kind TermKind

	// valid when Kind == TermConstraint
	Var string
	Lb  univ.Value
	Ub  univ.Value

	// valid when Kind == TermNAry
	Op    encoding.NAryOp
	Arity int
}

// ConstraintTerm references variable varName's "[lb, ub)" constraint.
func ConstraintTerm(varName string, lb, ub univ.Value) Term {
	return Term{Kind: TermConstraint, Var: varName, Lb: lb, Ub: ub}
}

// ComplementTerm negates the expression's current top-of-stack region.
func ComplementTerm() Term { return Term{Kind: TermComplement} }

// NAryTerm combines the top arity stack entries with op.
func NAryTerm(op encoding.NAryOp, arity int) Term { return Term{Kind: TermNAry, Op: op, Arity: arity} }

// Query is a postfix region-math expression over named variables
// (§4.8): "Constraints are deferred... constraint stack slots are
// materialized on demand by constraint evaluation."
type Query []Term

// Vars returns the distinct variable names this query's constraint
// terms reference.
func (q Query) Vars() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range q {
		if t.Kind == TermConstraint && !seen[t.Var] {
			seen[t.Var] = true
			out = append(out, t.Var)
		}
	}
	return out
}

// Sources maps a query's variable names to the partitioned index file
// each is read from.
type Sources map[string]*partition.Reader

// Evaluate executes q against partitionID, materializing each
// constraint term on demand via EvaluateConstraint and combining results
// with the region algebra (§4.8's "query-level evaluation").
func Evaluate(sources Sources, partitionID int, q Query, policy Policy) (region.Region, Stat, error) {
	startedAt := time.Now()
	defer func() {
		metrics.QueryLatencyHistogram.WithLabelValues(queryEncodingLabel(sources, q)).Observe(time.Since(startedAt).Seconds())
	}()

	var stack []region.Region
	var total Stat
	for _, t := range q {
		switch t.Kind {
		case TermConstraint:
			reader, ok := sources[t.Var]
			if !ok {
				return nil, Stat{}, fmt.Errorf("query: evaluate: no source registered for variable %q", t.Var)
			}
			r, stat, err := EvaluateConstraint(reader, partitionID, t.Lb, t.Ub, policy)
			if err != nil {
				return nil, Stat{}, fmt.Errorf("query: evaluate: variable %q: %w", t.Var, err)
			}
			stack = append(stack, r)
			total.Combine(stat, CombineAdd)

		case TermComplement:
			if len(stack) < 1 {
				return nil, Stat{}, fmt.Errorf("query: evaluate: stack underflow at complement")
			}
			c, err := region.Complement(stack[len(stack)-1])
			if err != nil {
				return nil, Stat{}, fmt.Errorf("query: evaluate: complement: %w", err)
			}
			stack[len(stack)-1] = c

		case TermNAry:
			if len(stack) < t.Arity || t.Arity == 0 {
				return nil, Stat{}, fmt.Errorf("query: evaluate: stack underflow at n-ary op (arity %d)", t.Arity)
			}
			operands := append([]region.Region{}, stack[len(stack)-t.Arity:]...)
			stack = stack[:len(stack)-t.Arity]
			var r region.Region
			var err error
			switch t.Op {
			case encoding.OpUnion:
				r, err = region.Union(operands...)
			case encoding.OpIntersect:
				r, err = region.Intersect(operands...)
			case encoding.OpDifference:
				r, err = region.Difference(operands...)
			case encoding.OpSymmetricDifference:
				r, err = region.SymmetricDifference(operands...)
			default:
				err = fmt.Errorf("query: unknown n-ary op %d", t.Op)
			}
			if err != nil {
				return nil, Stat{}, fmt.Errorf("query: evaluate: n-ary op: %w", err)
			}
			stack = append(stack, r)

		default:
			return nil, Stat{}, fmt.Errorf("query: evaluate: unknown term kind %d", t.Kind)
		}
	}
	if len(stack) != 1 {
		return nil, Stat{}, fmt.Errorf("query: evaluate: expression left %d results on stack, want 1", len(stack))
	}
	return stack[0], total, nil
}

// queryEncodingLabel reports the index_encoding metrics label for one
// Evaluate call: the single variable's encoding name, or "mixed" when the
// query spans variables built under different encodings.
func queryEncodingLabel(sources Sources, q Query) string {
	var label string
	for _, v := range q.Vars() {
		reader, ok := sources[v]
		if !ok {
			return "unknown"
		}
		meta, err := reader.Metadata(0)
		if err != nil {
			return "unknown"
		}
		name := meta.Encoding.Name()
		if label == "" {
			label = name
		} else if label != name {
			return "mixed"
		}
	}
	if label == "" {
		return "unknown"
	}
	return label
}
