package region

import "fmt"

// cblqCombineOp parameterizes the N-ary merge kernels below so a single
// traversal implementation serves union, intersection and (pairwise)
// difference (§4.3's "several interchangeable families of setop
// algorithms", all required to agree on output). Both fields operate
// directly on the operands' own 2-bit codes (0/1/2), never on a
// materialized node: shortCircuit decides a result without looking at
// any operand's children, combineLeaf decides one once none of them is
// mixed.
type cblqCombineOp struct {
	// shortCircuit inspects the operands' codes at one tree position
	// and, when the result is decidable without descending into any of
	// them, returns that result code and true.
	shortCircuit func(codes []uint8) (uint8, bool)
	// combineLeaf computes the result code when none of the operands is
	// code 2 and shortCircuit declined to decide.
	combineLeaf func(codes []uint8) uint8
}

var unionOp = cblqCombineOp{
	shortCircuit: func(codes []uint8) (uint8, bool) {
		allZero := true
		for _, c := range codes {
			if c == 1 {
				return 1, true
			}
			if c != 0 {
				allZero = false
			}
		}
		if allZero {
			return 0, true
		}
		return 0, false
	},
	combineLeaf: func(codes []uint8) uint8 {
		for _, c := range codes {
			if c == 1 {
				return 1
			}
		}
		return 0
	},
}

var intersectOp = cblqCombineOp{
	shortCircuit: func(codes []uint8) (uint8, bool) {
		allOne := true
		for _, c := range codes {
			if c == 0 {
				return 0, true
			}
			if c != 1 {
				allOne = false
			}
		}
		if allOne {
			return 1, true
		}
		return 0, false
	},
	combineLeaf: func(codes []uint8) uint8 {
		for _, c := range codes {
			if c != 1 {
				return 0
			}
		}
		return 1
	},
}

// diffOp is strictly binary: codes[0] is the minuend, codes[1] the
// subtrahend (§4.1's left-associative N-ary difference folds pairwise
// applications of this op). Unlike the tree-based formulation this
// replaces, it never aliases the minuend's subtree directly when the
// subtrahend is empty; it simply declines to decide and lets the
// ordinary mixed-descent below carry the minuend through unchanged,
// since a code-0 subtrahend never gets its cursor consumed anyway.
var diffOp = cblqCombineOp{
	shortCircuit: func(codes []uint8) (uint8, bool) {
		a, b := codes[0], codes[1]
		if a == 0 {
			return 0, true
		}
		if b == 1 {
			return 0, true
		}
		if a == 1 && b == 0 {
			return 1, true
		}
		return 0, false
	},
	combineLeaf: func(codes []uint8) uint8 {
		if codes[0] == 1 && codes[1] != 1 {
			return 1
		}
		return 0
	},
}

// skipUnexplored discards, for every operand whose code at this
// position was still 2 (mixed), the subtree that a decided result
// chose not to descend into — keeping that operand's cursor correctly
// positioned for its later siblings (§4.3's "several interchangeable
// families" all still have to parse each operand's own blocks exactly
// once each).
func skipUnexplored(cursors []*cblqCursor, lvl int, codes []uint8, groupSize int) {
	for i, c := range codes {
		if c == 2 {
			cursors[i].skip(lvl, groupSize)
		}
	}
}

// combineNodesDF is the depth-first, level-specialized baseline
// traversal (§4.3's "recursive code-by-code" family): it decides an
// entire subtree, recursing through each operand's own cblqCursor,
// before moving on to a sibling. No operand is ever materialized into
// a node tree first — reads happen exactly when the recursion needs
// them, and a decided-without-exploring operand has its still-mixed
// subtree discarded via skipUnexplored so its cursor stays aligned.
func combineNodesDF(cursors []*cblqCursor, lvl int, codes []uint8, groupSize int, op cblqCombineOp) *cblqNode {
	if code, ok := op.shortCircuit(codes); ok {
		skipUnexplored(cursors, lvl+1, codes, groupSize)
		return &cblqNode{code: code}
	}
	anyMixed := false
	for _, c := range codes {
		if c == 2 {
			anyMixed = true
			break
		}
	}
	if !anyMixed {
		return &cblqNode{code: op.combineLeaf(codes)}
	}
	children := make([]*cblqNode, groupSize)
	for g := 0; g < groupSize; g++ {
		childCodes := make([]uint8, len(codes))
		for i, c := range codes {
			if c == 2 {
				childCodes[i] = cursors[i].next(lvl + 1)
			} else {
				childCodes[i] = c
			}
		}
		children[g] = combineNodesDF(cursors, lvl+1, childCodes, groupSize, op)
	}
	return &cblqNode{code: 2, children: children}
}

// combineRootsDF runs combineNodesDF across each operand's own root
// blocks (level 0 of each operand's flat encoding), one cursor per
// operand.
func combineRootsDF(ops []*CBLQ, op cblqCombineOp) []*cblqNode {
	groupSize := ops[0].groupSize()
	cursors := make([]*cblqCursor, len(ops))
	for i, o := range ops {
		cursors[i] = newCBLQCursor(o)
	}
	roots := make([]*cblqNode, groupSize)
	for g := 0; g < groupSize; g++ {
		codes := make([]uint8, len(ops))
		for i := range cursors {
			codes[i] = cursors[i].next(0)
		}
		roots[g] = combineNodesDF(cursors, 0, codes, groupSize, op)
	}
	return roots
}

// cblqCombineFlat is the alternate, breadth-first "level-by-level"
// traversal (§4.3): instead of deciding one subtree at a time it
// processes an entire depth's worth of node positions before moving to
// the next. Like combineRootsDF it reads every operand directly
// through a cblqCursor and assembles the result straight into flat
// level arrays — no *cblqNode is built for either the input or the
// output, which is what makes this the word-level member of the
// family rather than just a different walk over the same materialized
// tree. It implements the identical op semantics as combineRootsDF and
// must always agree with it once both sides are compacted.
func cblqCombineFlat(ops []*CBLQ, op cblqCombineOp) *CBLQ {
	groupSize := ops[0].groupSize()
	n := len(ops)
	cursors := make([]*cblqCursor, n)
	for i, o := range ops {
		cursors[i] = newCBLQCursor(o)
	}

	// A skip entry produces no output code; it only walks an undecided
	// operand's subtree level by level so every cursor reads in order.
	type pending struct {
		codes []uint8
		skip  bool
	}
	frontier := make([]pending, groupSize)
	for g := 0; g < groupSize; g++ {
		codes := make([]uint8, n)
		for i := range cursors {
			codes[i] = cursors[i].next(0)
		}
		frontier[g] = pending{codes: codes}
	}

	var outLevels [][]uint8
	lvl := 0
	for len(frontier) > 0 {
		outCodes := make([]uint8, 0, len(frontier))
		var next []pending
		for _, p := range frontier {
			anyMixed := false
			for _, c := range p.codes {
				if c == 2 {
					anyMixed = true
					break
				}
			}
			if code, ok := op.shortCircuit(p.codes); p.skip || ok {
				if !p.skip {
					outCodes = append(outCodes, code)
				}
				for g := 0; anyMixed && g < groupSize; g++ {
					childCodes := make([]uint8, n)
					for i, c := range p.codes {
						if c == 2 {
							childCodes[i] = cursors[i].next(lvl + 1)
						}
					}
					next = append(next, pending{codes: childCodes, skip: true})
				}
				continue
			}
			if !anyMixed {
				outCodes = append(outCodes, op.combineLeaf(p.codes))
				continue
			}
			outCodes = append(outCodes, 2)
			for g := 0; g < groupSize; g++ {
				childCodes := make([]uint8, n)
				for i, c := range p.codes {
					if c == 2 {
						childCodes[i] = cursors[i].next(lvl + 1)
					} else {
						childCodes[i] = c
					}
				}
				next = append(next, pending{codes: childCodes})
			}
		}
		if len(outCodes) > 0 {
			outLevels = append(outLevels, outCodes)
		}
		frontier = next
		lvl++
	}

	return &CBLQ{dim: ops[0].dim, domainSize: ops[0].domainSize, levels: outLevels}
}

// denseOpKind selects the bitwise rule cblqCombineDenseWords applies.
type denseOpKind int

const (
	denseUnion denseOpKind = iota
	denseIntersect
	denseDifference
)

// cblqCombineDenseWords is the raw-word member of the family: it
// applies when every operand is purely dense (no ordinary mixed levels
// above the suffix at all, i.e. the whole encoding is one packed bit
// array), so the merge reduces to a single whole-byte pass instead of
// any per-position decision loop. Union and difference are a direct OR
// / AND-NOT over the byte slices; intersection is computed via De
// Morgan's law — the complement of the union of the operands'
// complements — so every op in this path stays inside OR/AND/NOT on
// whole bytes, the same trick the word-packed 2-bit encoding uses this
// dense suffix's 1-bit-per-code packing to simplify.
func cblqCombineDenseWords(ops []*CBLQ, kind denseOpKind) *CBLQ {
	n := len(ops[0].denseSuffix)
	out := make([]byte, n)
	switch kind {
	case denseUnion:
		for _, op := range ops {
			for i, b := range op.denseSuffix {
				out[i] |= b
			}
		}
	case denseIntersect:
		for _, op := range ops {
			for i, b := range op.denseSuffix {
				out[i] |= ^b
			}
		}
		for i := range out {
			out[i] = ^out[i]
		}
	case denseDifference:
		copy(out, ops[0].denseSuffix)
		for _, op := range ops[1:] {
			for i, b := range op.denseSuffix {
				out[i] &^= b
			}
		}
	}
	return &CBLQ{
		dim:            ops[0].dim,
		domainSize:     ops[0].domainSize,
		denseSuffix:    out,
		denseSuffixLen: ops[0].denseSuffixLen,
	}
}

// isPurelyDense reports whether op's whole encoding is a single packed
// dense suffix with no ordinary levels above it.
func isPurelyDense(op *CBLQ) bool {
	return len(op.levels) == 0 && op.denseSuffix != nil
}

func allPurelyDense(ops []*CBLQ) bool {
	for _, op := range ops {
		if !isPurelyDense(op) {
			return false
		}
	}
	return true
}

// applyDenseSuffix re-packs result's deepest level into a dense suffix
// when dense is true, mirroring buildCBLQ's own dense construction
// path. Every setop kernel below must call this: without it, a result
// built from two dense-suffix operands would silently lose the
// encoding (§4.3's "halves storage for the largest level" guarantee
// would otherwise evaporate after a single union or intersection).
func applyDenseSuffix(c *CBLQ, dense bool) *CBLQ {
	if !dense || len(c.levels) == 0 {
		return c
	}
	last := c.levels[len(c.levels)-1]
	c.levels = c.levels[:len(c.levels)-1]
	c.denseSuffix = packBits(last)
	c.denseSuffixLen = len(last)
	return c
}

// deduceDenseSuffix implements §4.3's pre-setop negotiation: all
// operands with an empty (absent) dense suffix picks either
// representation; a mix of one non-empty density and otherwise-empty
// operands adopts that density; two operands with differing non-empty
// densities cannot be combined.
func deduceDenseSuffix(ops []*CBLQ) (bool, error) {
	seen := map[bool]bool{}
	for _, op := range ops {
		if op.denseSuffixLen == 0 {
			continue
		}
		seen[op.denseSuffix != nil] = true
	}
	switch len(seen) {
	case 0:
		return true, nil
	case 1:
		for k := range seen {
			return k, nil
		}
	}
	return false, fmt.Errorf("region: cblq conflicting dense-suffix density: %w", ErrOperandIncompatible)
}

func validateCBLQOperands(ops []*CBLQ) (bool, error) {
	if len(ops) == 0 {
		return false, fmt.Errorf("region: cblq setop requires at least one operand")
	}
	for _, op := range ops[1:] {
		if op.dim != ops[0].dim || op.domainSize != ops[0].domainSize {
			return false, ErrOperandIncompatible
		}
	}
	return deduceDenseSuffix(ops)
}

// cblqCombineBaseline runs the DF code-by-code family and flattens its
// node-tree output (fromTree is still the simplest way to assemble an
// irregular, possibly-deeply-recursed node tree into level arrays).
func cblqCombineBaseline(ops []*CBLQ, op cblqCombineOp) (*CBLQ, error) {
	dense, err := validateCBLQOperands(ops)
	if err != nil {
		return nil, err
	}
	roots := combineRootsDF(ops, op)
	for _, n := range roots {
		compactNode(n)
	}
	return applyDenseSuffix(fromTree(ops[0].dim, ops[0].domainSize, roots), dense), nil
}

// cblqCombineFast runs the BF flat-array family. cblqCombineFlat's
// per-node decisions are local (like combineNodesDF's), so a node that
// is code 2 because a child was still undecided can turn out uniform
// only once all of its children are in; Compact's bottom-up sweep
// resolves that before the dense suffix (if any) is repacked.
func cblqCombineFast(ops []*CBLQ, op cblqCombineOp) (*CBLQ, error) {
	dense, err := validateCBLQOperands(ops)
	if err != nil {
		return nil, err
	}
	result := cblqCombineFlat(ops, op).Compact()
	return applyDenseSuffix(result, dense), nil
}

// cblqCombineWords runs the raw-word family: operands that are all
// purely dense take the whole-byte bitwise fast path; anything with
// upper mixed levels falls back to the same flat cursor merge the fast
// family uses (still word-level, never tree-materializing), which is
// where the dense suffix — if one remains below those upper levels —
// gets its own bit-level treatment.
func cblqCombineWords(ops []*CBLQ, op cblqCombineOp, kind denseOpKind) (*CBLQ, error) {
	dense, err := validateCBLQOperands(ops)
	if err != nil {
		return nil, err
	}
	if dense && allPurelyDense(ops) {
		return cblqCombineDenseWords(ops, kind), nil
	}
	result := cblqCombineFlat(ops, op).Compact()
	return applyDenseSuffix(result, dense), nil
}

// CBLQUnion computes the N-ary union using the recursive code-by-code
// baseline algorithm.
func CBLQUnion(ops ...*CBLQ) (*CBLQ, error) { return cblqCombineBaseline(ops, unionOp) }

// CBLQUnionFast computes the same union using the iterative
// level-by-level, cursor-driven flat-array algorithm; always agrees
// with CBLQUnion.
func CBLQUnionFast(ops ...*CBLQ) (*CBLQ, error) { return cblqCombineFast(ops, unionOp) }

// CBLQUnionWords computes the same union using the raw-word family: a
// single whole-byte OR pass when every operand is purely dense, the
// flat cursor merge otherwise. Always agrees with CBLQUnion.
func CBLQUnionWords(ops ...*CBLQ) (*CBLQ, error) { return cblqCombineWords(ops, unionOp, denseUnion) }

// CBLQIntersect computes the N-ary intersection via the recursive
// baseline algorithm.
func CBLQIntersect(ops ...*CBLQ) (*CBLQ, error) { return cblqCombineBaseline(ops, intersectOp) }

// CBLQIntersectFast computes the same intersection via the iterative
// level-by-level, cursor-driven flat-array algorithm; always agrees
// with CBLQIntersect.
func CBLQIntersectFast(ops ...*CBLQ) (*CBLQ, error) { return cblqCombineFast(ops, intersectOp) }

// CBLQIntersectWords computes the same intersection using the raw-word
// family: a whole-byte De Morgan pass when every operand is purely
// dense, the flat cursor merge otherwise. Always agrees with
// CBLQIntersect.
func CBLQIntersectWords(ops ...*CBLQ) (*CBLQ, error) {
	return cblqCombineWords(ops, intersectOp, denseIntersect)
}

// CBLQDifference folds a minus-equals over the operands left to right:
// ((ops[0] - ops[1]) - ops[2]) - ... (§4.1).
func CBLQDifference(ops ...*CBLQ) (*CBLQ, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("region: cblq difference requires at least one operand")
	}
	acc := ops[0]
	for _, next := range ops[1:] {
		r, err := cblqCombineBaseline([]*CBLQ{acc, next}, diffOp)
		if err != nil {
			return nil, err
		}
		acc = r
	}
	return acc, nil
}

// CBLQDifferenceWords is CBLQDifference's raw-word counterpart, folding
// the same left-to-right minus-equals through cblqCombineWords at each
// step instead of the DF baseline kernel. Always agrees with
// CBLQDifference.
func CBLQDifferenceWords(ops ...*CBLQ) (*CBLQ, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("region: cblq difference requires at least one operand")
	}
	acc := ops[0]
	for _, next := range ops[1:] {
		r, err := cblqCombineWords([]*CBLQ{acc, next}, diffOp, denseDifference)
		if err != nil {
			return nil, err
		}
		acc = r
	}
	return acc, nil
}

// CBLQSymmetricDifference folds pairwise symmetric difference, each
// built from union and difference, left to right.
func CBLQSymmetricDifference(ops ...*CBLQ) (*CBLQ, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("region: cblq symmetric difference requires at least one operand")
	}
	acc := ops[0]
	for _, next := range ops[1:] {
		ab, err := CBLQDifference(acc, next)
		if err != nil {
			return nil, err
		}
		ba, err := CBLQDifference(next, acc)
		if err != nil {
			return nil, err
		}
		acc, err = CBLQUnion(ab, ba)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (c *CBLQ) complement() *CBLQ {
	full := newUniformCBLQ(c.dim, c.domainSize, true)
	r, err := CBLQDifference(full, c)
	if err != nil {
		// same dim/domain by construction, cannot fail
		panic(err)
	}
	return r
}
