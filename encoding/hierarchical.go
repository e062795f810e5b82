package encoding

import "ridx/region"

// Hierarchical lays the K bins out as the leaves of a complete binary
// tree and stores one union region per tree node, leaves included
// (§4.4): O(K) regions total. A [lb, ub) bin-range query is answered by
// the classic iterative segment-tree decomposition into the minimal set
// of disjoint canonical nodes covering the range — O(log K) stored
// regions unioned together, no bit arithmetic required.
//
// Node 0 holds an empty placeholder region and is never referenced by
// a query; the tree proper occupies
// indices [1, 2*size), with leaves at [size, 2*size) and internals at
// [1, size). This keeps the well-known l,r-halving query loop free of
// a special case for the root.
type Hierarchical struct{}

func (Hierarchical) Name() string { return "hierarchical" }

// treeSize returns the smallest power of two >= k (at least 1).
func treeSize(k int) int {
	size := 1
	for size < k {
		size *= 2
	}
	return size
}

func (Hierarchical) NumRegions(k int) int { return 2 * treeSize(k) }

func (Hierarchical) EncodedRegions(bins []region.Region, k int) ([]region.Region, error) {
	size := treeSize(k)
	out := make([]region.Region, 2*size)
	empty, err := region.MakeUniform(bins[0].Type(), bins[0].DomainSize(), false)
	if err != nil {
		return nil, err
	}
	out[0] = empty
	for i := 0; i < size; i++ {
		if i < k {
			out[size+i] = bins[i]
		} else {
			out[size+i] = empty
		}
	}
	for x := size - 1; x >= 1; x-- {
		u, err := region.Union(out[2*x], out[2*x+1])
		if err != nil {
			return nil, err
		}
		out[x] = u
	}
	return out, nil
}

// segmentTreeNodes returns the canonical disjoint node indices covering
// leaf range [lb, ub) within a tree of the given leaf count.
func segmentTreeNodes(lb, ub, size int) []int {
	var nodes []int
	l, r := lb+size, ub+size
	for l < r {
		if l&1 == 1 {
			nodes = append(nodes, l)
			l++
		}
		if r&1 == 1 {
			r--
			nodes = append(nodes, r)
		}
		l /= 2
		r /= 2
	}
	return nodes
}

func (h Hierarchical) RegionMath(k, lb, ub int, preferComplement bool) (Expression, error) {
	if preferComplement {
		return genericComplementPlan(h, k, lb, ub)
	}
	size := treeSize(k)
	nodes := segmentTreeNodes(lb, ub, size)
	var expr Expression
	for _, n := range nodes {
		expr = append(expr, RegionTerm(n))
	}
	if len(nodes) > 1 {
		expr = append(expr, NAryTerm(OpUnion, len(nodes)))
	}
	return expr, nil
}
