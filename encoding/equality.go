package encoding

import "ridx/region"

// Equality is the identity encoding (§4.4): region i is bin i, and a
// [lb, ub) query is the union of those bins. It is also the only
// encoding the index builder produces directly (§4.5); the others are
// produced by re-encoding an equality-encoded index.
type Equality struct{}

func (Equality) Name() string { return "equality" }

func (Equality) NumRegions(k int) int { return k }

func (Equality) EncodedRegions(bins []region.Region, k int) ([]region.Region, error) {
	out := make([]region.Region, k)
	copy(out, bins)
	return out, nil
}

func (e Equality) RegionMath(k, lb, ub int, preferComplement bool) (Expression, error) {
	if preferComplement {
		return genericComplementPlan(e, k, lb, ub)
	}
	ids := make([]int, 0, ub-lb)
	for i := lb; i < ub; i++ {
		ids = append(ids, i)
	}
	return unionExpr(ids), nil
}
