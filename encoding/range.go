package encoding

import "ridx/region"

// Range stores K prefix-union regions: region i covers bins [0, i]
// (§4.4). A [lb, ub) query is then a single difference of two stored
// regions instead of an arity-(ub-lb) union.
type Range struct{}

func (Range) Name() string { return "range" }

func (Range) NumRegions(k int) int { return k }

func (Range) EncodedRegions(bins []region.Region, k int) ([]region.Region, error) {
	binSets := make([][]int, k)
	set := []int{}
	for i := 0; i < k; i++ {
		set = append(set, i)
		binSets[i] = append([]int{}, set...)
	}
	return buildByBinSets(bins, binSets)
}

func (r Range) RegionMath(k, lb, ub int, preferComplement bool) (Expression, error) {
	if preferComplement {
		return genericComplementPlan(r, k, lb, ub)
	}
	if lb == 0 {
		return Expression{RegionTerm(ub - 1)}, nil
	}
	return Expression{
		RegionTerm(ub - 1),
		RegionTerm(lb - 1),
		NAryTerm(OpDifference, 2),
	}, nil
}
