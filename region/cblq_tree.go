package region

// cblqNode is a transient in-memory tree view of a CBLQ. The setop
// kernels in cblq_setops.go build their *output* as a tree of these
// (it's the simplest way to assemble a result whose shape isn't known
// ahead of time) but read every *input* operand directly through a
// cblqCursor instead of materializing it into this shape first; Compact
// below is the one place that still round-trips a whole CBLQ through
// toTree/fromTree, since it only ever concerns a single structure. The
// persistent representation stays the flat breadth-first level arrays
// in CBLQ itself.
type cblqNode struct {
	code     uint8
	children []*cblqNode // present only when code == 2, len == groupSize
}

// toTree expands c's flat levels into an explicit tree rooted at a slice
// of groupSize nodes (the root itself is implicit, as in CBLQ.levels).
func (c *CBLQ) toTree() []*cblqNode {
	levels := c.allLevels()
	groupSize := c.groupSize()
	if len(levels) == 0 {
		return nil
	}
	cursors := make([]int, len(levels))
	return buildTreeLevel(levels, 0, cursors, groupSize)
}

// buildTreeLevel keeps one read position per level, since the levels are
// stored breadth-first while the recursion descends depth-first.
func buildTreeLevel(levels [][]uint8, lvl int, cursors []int, count int) []*cblqNode {
	nodes := make([]*cblqNode, count)
	for i := 0; i < count; i++ {
		code := levels[lvl][cursors[lvl]]
		cursors[lvl]++
		n := &cblqNode{code: code}
		if code == 2 {
			n.children = buildTreeLevel(levels, lvl+1, cursors, len(nodes))
		}
		nodes[i] = n
	}
	return nodes
}

// fromTree flattens a tree back into breadth-first level arrays, the
// mirror image of toTree. A subtree whose children were all pruned to a
// uniform code by compact() naturally contributes no entries past its
// own level, so fully-uniform subtrees collapse to a short level list.
func fromTree(dim, domainSize int, roots []*cblqNode) *CBLQ {
	var levels [][]uint8
	cur := roots
	for len(cur) > 0 {
		codes := make([]uint8, len(cur))
		var next []*cblqNode
		for i, n := range cur {
			codes[i] = n.code
			if n.code == 2 {
				next = append(next, n.children...)
			}
		}
		levels = append(levels, codes)
		cur = next
	}
	return &CBLQ{dim: dim, domainSize: domainSize, levels: levels}
}

// compact collapses any node whose children are all clear or all full
// into a single 0/1 leaf (§4.3's quadtree compaction).
func compactNode(n *cblqNode) {
	if n.code != 2 {
		return
	}
	allZero, allOne := true, true
	for _, ch := range n.children {
		compactNode(ch)
		if ch.code != 0 {
			allZero = false
		}
		if ch.code != 1 {
			allOne = false
		}
	}
	switch {
	case allZero:
		n.code, n.children = 0, nil
	case allOne:
		n.code, n.children = 1, nil
	}
}

// Compact returns an equivalent CBLQ with every uniform subtree
// collapsed to a single leaf code.
func (c *CBLQ) Compact() *CBLQ {
	roots := c.toTree()
	for _, n := range roots {
		compactNode(n)
	}
	return fromTree(c.dim, c.domainSize, roots)
}

// cblqEqualCompact compares two CBLQs structurally after compaction —
// used by tests asserting that distinct setop algorithms produce
// byte-identical encoded results, not merely RID-equivalent ones.
func cblqEqualCompact(a, b *CBLQ) bool {
	if a.dim != b.dim || a.domainSize != b.domainSize {
		return false
	}
	ca, cb := a.Compact(), b.Compact()
	if len(ca.levels) != len(cb.levels) {
		return false
	}
	for i := range ca.levels {
		if len(ca.levels[i]) != len(cb.levels[i]) {
			return false
		}
		for j := range ca.levels[i] {
			if ca.levels[i][j] != cb.levels[i][j] {
				return false
			}
		}
	}
	return true
}
