package encoding

import "ridx/region"

// Interval stores floor(K/2)+1 sliding windows of width ceil(K/2) (§4.4,
// after the Wu–Buchmann interval encoding): region i covers bins
// [i, i+width). Any [lb, ub) fitting inside one window is a single
// difference of two stored regions; a query starting at bin 0, or one
// that doesn't fit a single window, falls back to the prefix/complement
// construction below, which always terminates in at most two extra
// hops (§4.4's "five cases" collapsed into two reusable base cases:
// window-difference and prefix-union).
type Interval struct{}

func (Interval) Name() string { return "interval" }

func intervalWidth(k int) int { return (k + 1) / 2 } // ceil(k/2)

func intervalLastStart(k int) int { return k - intervalWidth(k) }

func (Interval) NumRegions(k int) int { return intervalLastStart(k) + 1 }

func (Interval) EncodedRegions(bins []region.Region, k int) ([]region.Region, error) {
	width := intervalWidth(k)
	last := intervalLastStart(k)
	binSets := make([][]int, last+1)
	for i := 0; i <= last; i++ {
		end := i + width
		if end > k {
			end = k
		}
		set := make([]int, 0, width)
		for b := i; b < end; b++ {
			set = append(set, b)
		}
		binSets[i] = set
	}
	return buildByBinSets(bins, binSets)
}

// prefixExpr expresses [0, m) for 0 < m <= k using at most two stored
// windows: a straight difference when m fits the first window, or a
// union of the first and an offset window otherwise.
func prefixExpr(k, m int) Expression {
	width := intervalWidth(k)
	if m <= width {
		if m == width {
			return Expression{RegionTerm(0)}
		}
		return Expression{RegionTerm(0), RegionTerm(m), NAryTerm(OpDifference, 2)}
	}
	other := m - width
	return Expression{RegionTerm(0), RegionTerm(other), NAryTerm(OpUnion, 2)}
}

func windowDiffExpr(k, lb, ub int) Expression {
	width := intervalWidth(k)
	if ub-lb == width {
		return Expression{RegionTerm(lb)}
	}
	return Expression{RegionTerm(lb), RegionTerm(ub), NAryTerm(OpDifference, 2)}
}

func (iv Interval) RegionMath(k, lb, ub int, preferComplement bool) (Expression, error) {
	if preferComplement {
		return genericComplementPlan(iv, k, lb, ub)
	}
	if lb == 0 {
		return prefixExpr(k, ub), nil
	}
	last := intervalLastStart(k)
	width := intervalWidth(k)
	if lb <= last && ub <= last && ub-lb <= width {
		return windowDiffExpr(k, lb, ub), nil
	}
	return genericComplementPlan(iv, k, lb, ub)
}
