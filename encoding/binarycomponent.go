package encoding

import "ridx/region"

// BinaryComponent stores one region per bit position of the bin index
// (§4.4): region p is the union of bins whose index has bit p set,
// giving ceil(log2 K) stored regions. A [lb, ub) query is decomposed
// into the minimal set of dyadic-aligned blocks covering the range (the
// same canonical-block technique a Fenwick/segment tree range query
// uses), each expressed as a conjunction of fixed bit-plane
// constraints, then unioned.
type BinaryComponent struct{}

func (BinaryComponent) Name() string { return "binarycomp" }

func numBits(k int) int {
	if k <= 1 {
		return 0
	}
	n := 0
	for (1 << uint(n)) < k {
		n++
	}
	return n
}

func (BinaryComponent) NumRegions(k int) int { return numBits(k) }

func (BinaryComponent) EncodedRegions(bins []region.Region, k int) ([]region.Region, error) {
	nb := numBits(k)
	binSets := make([][]int, nb)
	for p := 0; p < nb; p++ {
		var set []int
		for i := 0; i < k; i++ {
			if i&(1<<uint(p)) != 0 {
				set = append(set, i)
			}
		}
		binSets[p] = set
	}
	return buildByBinSets(bins, binSets)
}

// dyadicBlock is a canonical aligned range [start, start+2^level).
type dyadicBlock struct {
	start, level int
}

// decomposeDyadic greedily covers [lb, ub) with the fewest canonical
// power-of-two-aligned blocks, each as large as alignment and the range
// boundary allow — the same decomposition a Fenwick tree range update
// performs, bounded to O(log(ub-lb)) blocks.
func decomposeDyadic(lb, ub, maxLevel int) []dyadicBlock {
	var blocks []dyadicBlock
	cur := lb
	for cur < ub {
		level := 0
		for level < maxLevel {
			size := 1 << uint(level+1)
			if cur%size != 0 || cur+size > ub {
				break
			}
			level++
		}
		blocks = append(blocks, dyadicBlock{start: cur, level: level})
		cur += 1 << uint(level)
	}
	return blocks
}

func (bc BinaryComponent) blockExpr(start, level, nb int) Expression {
	if level >= nb && nb > 0 {
		// The block spans every bin, so no bit plane constrains it: the
		// full set is region 0 unioned with its own complement.
		return Expression{RegionTerm(0), RegionTerm(0), ComplementTerm(), NAryTerm(OpUnion, 2)}
	}
	var expr Expression
	count := 0
	for p := nb - 1; p >= level; p-- {
		expr = append(expr, RegionTerm(p))
		if (start>>uint(p))&1 == 0 {
			expr = append(expr, ComplementTerm())
		}
		count++
	}
	if count > 1 {
		expr = append(expr, NAryTerm(OpIntersect, count))
	}
	return expr
}

func (bc BinaryComponent) RegionMath(k, lb, ub int, preferComplement bool) (Expression, error) {
	if preferComplement {
		return genericComplementPlan(bc, k, lb, ub)
	}
	nb := numBits(k)
	blocks := decomposeDyadic(lb, ub, nb)
	var expr Expression
	for _, b := range blocks {
		expr = append(expr, bc.blockExpr(b.start, b.level, nb)...)
	}
	if len(blocks) > 1 {
		expr = append(expr, NAryTerm(OpUnion, len(blocks)))
	}
	return expr, nil
}
