package encoding

import (
	"fmt"

	"ridx/region"
)

// IndexEncoding is a bin-to-region rewrite strategy (§4.4): given K bins
// it determines how many regions to physically store, how to build them
// from the bins, and how to answer a "[lb, ub) bin range" query as a
// region-math Expression.
type IndexEncoding interface {
	// Name identifies the encoding for diagnostics.
	Name() string
	// Tag is the single-byte dynamic type tag persisted ahead of the
	// (empty, for every encoding defined here) encoding payload in a
	// partition header (§6).
	Tag() uint8
	// NumRegions reports the stored-region count R for K bins.
	NumRegions(k int) int
	// EncodedRegions builds the R stored regions from the K per-bin
	// equality regions.
	EncodedRegions(bins []region.Region, k int) ([]region.Region, error)
	// RegionMath produces the postfix expression equaling "union of
	// bins [lb, ub)" over this encoding's stored regions. Callers
	// guarantee 0 <= lb < ub <= k (the empty/full cases are handled one
	// level up, per §4.8 step 2).
	RegionMath(k, lb, ub int, preferComplement bool) (Expression, error)
}

// buildByBinSets is the "default encoded-regions implementation" (§4.4):
// given, for each stored region, the set of bin indices it covers,
// build it as the N-ary union of those bins' equality regions.
func buildByBinSets(bins []region.Region, binSets [][]int) ([]region.Region, error) {
	out := make([]region.Region, len(binSets))
	for i, set := range binSets {
		if len(set) == 0 {
			r, err := region.MakeUniform(bins[0].Type(), bins[0].DomainSize(), false)
			if err != nil {
				return nil, err
			}
			out[i] = r
			continue
		}
		operands := make([]region.Region, len(set))
		for j, b := range set {
			operands[j] = bins[b]
		}
		r, err := region.Union(operands...)
		if err != nil {
			return nil, fmt.Errorf("encoding: build stored region %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// genericComplementPlan implements the shared prefer_complement strategy
// (§4.4): "[lb, ub)" is the complement, within the K bins, of "[0, lb) ∪
// [ub, K)". Any encoding's own direct RegionMath recursively answers
// those two (possibly empty) sub-ranges, so this single helper serves
// every encoding without each needing a bespoke complement derivation.
func genericComplementPlan(enc IndexEncoding, k, lb, ub int) (Expression, error) {
	var parts []Expression
	if lb > 0 {
		left, err := enc.RegionMath(k, 0, lb, false)
		if err != nil {
			return nil, err
		}
		parts = append(parts, left)
	}
	if ub < k {
		right, err := enc.RegionMath(k, ub, k, false)
		if err != nil {
			return nil, err
		}
		parts = append(parts, right)
	}
	if len(parts) == 0 {
		// [lb, ub) spans all K bins, so there is no sub-range left to
		// complement (a 0-operand union is invalid). Fall back to the
		// direct plan for this degenerate case.
		return enc.RegionMath(k, lb, ub, false)
	}
	var expr Expression
	for _, p := range parts {
		expr = append(expr, p...)
	}
	if len(parts) > 1 {
		expr = append(expr, NAryTerm(OpUnion, len(parts)))
	}
	expr = append(expr, ComplementTerm())
	return expr, nil
}
