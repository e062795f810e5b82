package region

// CBLQToBitmap converts c into an equivalent Bitmap (§4.2). It is
// implemented as a breadth-first-over-blocks traversal that imprints
// each uniform subtree directly onto the target bitmap's word array
// instead of decoding to individual RIDs first, so a large all-set or
// all-clear subtree costs one word-range mutation rather than one
// mutation per bit.
func CBLQToBitmap(c *CBLQ) *Bitmap {
	target := newUniformBitmap(c.domainSize, false)
	imprintCBLQ(c, target)
	return target
}

// imprintCBLQ walks c breadth-first over its own blocks via a
// cblqCursor, imprinting each constant (code 0 or 1) subtree onto
// target. Code 0 subtrees need no mutation since target starts all
// clear; the dense suffix, when present, is read bit by bit rather
// than unpacked up front.
func imprintCBLQ(c *CBLQ, target *Bitmap) {
	numLevels := c.numLevels()
	if numLevels == 0 {
		return
	}
	groupSize := uint64(c.groupSize())
	padded := paddedDomain(c.dim, numLevelsFor(c.dim, c.domainSize))
	cur := newCBLQCursor(c)

	type pending struct{ start, length uint64 }
	queue := []pending{{0, padded}}
	for lvl := 0; lvl < numLevels; lvl++ {
		var next []pending
		for _, node := range queue {
			childLen := node.length / groupSize
			for g := uint64(0); g < groupSize; g++ {
				code := cur.next(lvl)
				childStart := node.start + g*childLen
				switch code {
				case 1:
					imprintRun(target, childStart, childLen)
				case 2:
					next = append(next, pending{childStart, childLen})
				}
			}
		}
		queue = next
	}
}

// imprintRun sets bits [start, start+length) on target, clipped to its
// domain size, using whole-word stores wherever the run is word-aligned
// and falling back to single-bit sets only at its unaligned edges —
// the "rewrite a bitfield"/"overwrite a run of whole words" split
// described by §4.2.
func imprintRun(target *Bitmap, start, length uint64) {
	end := start + length
	if end > uint64(target.domainSize) {
		end = uint64(target.domainSize)
	}
	if start >= end {
		return
	}

	i := start
	// Unaligned prefix up to the next word boundary.
	for i < end && i%wordBits != 0 {
		target.set(uint32(i))
		i++
	}
	// Whole words.
	for i+wordBits <= end {
		target.words[i/wordBits] = ^uint64(0)
		i += wordBits
	}
	// Unaligned suffix.
	for i < end {
		target.set(uint32(i))
		i++
	}
}
