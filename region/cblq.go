package region

import (
	"encoding/binary"
	"fmt"
	"io"
)

// CBLQ is the hierarchical quadtree-like region encoding (§4.3): the
// domain is recursively partitioned into groupSize = 2^Dim equal
// children per node. Each position stores a 2-bit code: 0 = subtree all
// clear, 1 = subtree all set, 2 = mixed (children stored at the next
// level). Levels are stored breadth-first, left to right, as flat code
// arrays — "words" in the spec's vocabulary are here just the
// groupSize-code slice belonging to one parent, which keeps the
// algorithms below addressable without hand-rolled bit-packing of
// machine words; DESIGN.md records this as a documented simplification
// since nothing requires byte-for-byte interop with the original
//8-bytes/word C++ encoding.
type CBLQ struct {
	dim        int
	domainSize int
	levels     [][]uint8 // levels[0] = codes of the root's groupSize children

	// denseSuffix, when non-nil, holds the deepest level's codes packed
	// one bit per code (always 0/1 by construction — see §4.3) instead
	// of appearing as the last entry of levels. denseSuffixLen is the
	// code count it represents.
	denseSuffix    []byte
	denseSuffixLen int
}

func (c *CBLQ) groupSize() int { return 1 << uint(c.dim) }

// numLevelsFor returns the number of CBLQ levels needed for domainSize
// under dimension dim: ceil(log2(domainSize) / dim), per §4.3.
func numLevelsFor(dim, domainSize int) int {
	if domainSize <= 1 {
		return 1
	}
	levels := 0
	capacity := uint64(1)
	groupSize := uint64(1) << uint(dim)
	for capacity < uint64(domainSize) {
		capacity *= groupSize
		levels++
	}
	if levels == 0 {
		levels = 1
	}
	return levels
}

func paddedDomain(dim, numLevels int) uint64 {
	size := uint64(1)
	groupSize := uint64(1) << uint(dim)
	for i := 0; i < numLevels; i++ {
		size *= groupSize
	}
	return size
}

// membership classifies whether element i (0-based RID) belongs to the
// set being built; indices at or beyond domainSize are always false
// (padding is defined as clear, §4.3).
type membership func(i uint64) bool

// buildCBLQ constructs a compact CBLQ from a membership predicate via
// breadth-first top-down recursive partitioning (§4.3, §4.5).
func buildCBLQ(dim, domainSize int, member membership, dense bool) *CBLQ {
	groupSize := 1 << uint(dim)
	numLevels := numLevelsFor(dim, domainSize)
	padded := paddedDomain(dim, numLevels)

	type pending struct{ start, length uint64 }
	queue := []pending{{0, padded}}
	var levels [][]uint8
	for lvl := 0; lvl < numLevels && len(queue) > 0; lvl++ {
		levelCodes := make([]uint8, 0, len(queue)*groupSize)
		var nextQueue []pending
		for _, node := range queue {
			childLen := node.length / uint64(groupSize)
			for g := 0; g < groupSize; g++ {
				childStart := node.start + uint64(g)*childLen
				code := classifyBlock(childStart, childLen, domainSize, member)
				levelCodes = append(levelCodes, code)
				if code == 2 {
					nextQueue = append(nextQueue, pending{childStart, childLen})
				}
			}
		}
		levels = append(levels, levelCodes)
		queue = nextQueue
	}

	c := &CBLQ{dim: dim, domainSize: domainSize, levels: levels}
	if dense && len(levels) > 0 {
		last := levels[len(levels)-1]
		c.levels = levels[:len(levels)-1]
		c.denseSuffix = packBits(last)
		c.denseSuffixLen = len(last)
	}
	return c
}

func classifyBlock(start, length uint64, domainSize int, member membership) uint8 {
	end := start + length
	allSet, allClear := true, true
	for i := start; i < end; i++ {
		var bit bool
		if i < uint64(domainSize) {
			bit = member(i)
		}
		if bit {
			allClear = false
		} else {
			allSet = false
		}
		if !allSet && !allClear {
			return 2
		}
	}
	if allSet {
		return 1
	}
	return 0
}

func packBits(codes []uint8) []byte {
	out := make([]byte, (len(codes)+7)/8)
	for i, c := range codes {
		if c != 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func unpackBits(packed []byte, n int) []uint8 {
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		if packed[i/8]&(1<<uint(i%8)) != 0 {
			out[i] = 1
		}
	}
	return out
}

// deepestLevel returns the codes of the deepest level, transparently
// unpacking the dense suffix if present.
func (c *CBLQ) deepestLevel() []uint8 {
	if c.denseSuffix != nil {
		return unpackBits(c.denseSuffix, c.denseSuffixLen)
	}
	if len(c.levels) == 0 {
		return nil
	}
	return c.levels[len(c.levels)-1]
}

// allLevels returns every level's codes, logically reassembling the
// dense suffix as the trailing level when present. Only toTree (the
// single-structure compaction path) still eagerly unpacks this way;
// the setop kernels and the RID/bitmap traversals below read the dense
// suffix bit by bit through a cblqCursor instead.
func (c *CBLQ) allLevels() [][]uint8 {
	if c.denseSuffix == nil {
		return c.levels
	}
	return append(append([][]uint8{}, c.levels...), unpackBits(c.denseSuffix, c.denseSuffixLen))
}

// numLevels is the depth of c's tree: its ordinary levels plus one more
// for the dense suffix when present.
func (c *CBLQ) numLevels() int {
	n := len(c.levels)
	if c.denseSuffix != nil {
		n++
	}
	return n
}

func newUniformCBLQ(dim, domainSize int, filled bool) *CBLQ {
	groupSize := 1 << uint(dim)
	codes := make([]uint8, groupSize)
	if filled {
		for i := range codes {
			codes[i] = 1
		}
	}
	return &CBLQ{dim: dim, domainSize: domainSize, levels: [][]uint8{codes}}
}

func (c *CBLQ) Type() Type {
	switch c.dim {
	case 2:
		return TypeCBLQ2
	case 3:
		return TypeCBLQ3
	case 4:
		return TypeCBLQ4
	default:
		return TypeCBLQ2
	}
}

func (c *CBLQ) DomainSize() int { return c.domainSize }

func (c *CBLQ) SizeInBytes() int {
	n := 8
	for _, lvl := range c.levels {
		n += len(lvl)
	}
	if c.denseSuffix != nil {
		n += len(c.denseSuffix)
	}
	return n
}

// ConvertToRIDs walks c breadth-first over its own blocks, reading each
// code through a cblqCursor so the dense suffix (when present) is read
// one bit at a time in place rather than unpacked into a temporary
// array up front.
func (c *CBLQ) ConvertToRIDs() []uint32 {
	groupSize := uint64(c.groupSize())
	numLevels := c.numLevels()
	if numLevels == 0 {
		return nil
	}
	// The stored tree can be shallower than the full depth (uniform
	// subtrees stop early), so the padded size comes from the domain.
	padded := paddedDomain(c.dim, numLevelsFor(c.dim, c.domainSize))
	cur := newCBLQCursor(c)

	type pending struct{ start, length uint64 }
	queue := []pending{{0, padded}}
	var out []uint32
	for lvl := 0; lvl < numLevels; lvl++ {
		var nextQueue []pending
		for _, node := range queue {
			childLen := node.length / groupSize
			for g := uint64(0); g < groupSize; g++ {
				code := cur.next(lvl)
				childStart := node.start + g*childLen
				switch code {
				case 1:
					emitRange(&out, childStart, childLen, c.domainSize)
				case 2:
					nextQueue = append(nextQueue, pending{childStart, childLen})
				}
			}
		}
		queue = nextQueue
	}
	return out
}

func emitRange(out *[]uint32, start, length uint64, domainSize int) {
	end := start + length
	if end > uint64(domainSize) {
		end = uint64(domainSize)
	}
	for i := start; i < end; i++ {
		*out = append(*out, uint32(i))
	}
}

func (c *CBLQ) ElementCount() int { return len(c.ConvertToRIDs()) }

func (c *CBLQ) Uniform() (filled bool, ok bool) {
	count := c.ElementCount()
	if count == 0 {
		return false, true
	}
	if count == c.domainSize {
		return true, true
	}
	return false, false
}

func (c *CBLQ) Equals(other Region) bool { return regionsEqualByRIDs(c, other) }

func (c *CBLQ) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint8(c.dim)); err != nil {
		return fmt.Errorf("region: cblq save dim: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(c.domainSize)); err != nil {
		return fmt.Errorf("region: cblq save domain size: %w", err)
	}
	dense := c.denseSuffix != nil
	if err := binary.Write(w, binary.LittleEndian, dense); err != nil {
		return fmt.Errorf("region: cblq save dense flag: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.levels))); err != nil {
		return fmt.Errorf("region: cblq save level count: %w", err)
	}
	for _, lvl := range c.levels {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(lvl))); err != nil {
			return fmt.Errorf("region: cblq save level length: %w", err)
		}
		if _, err := w.Write(lvl); err != nil {
			return fmt.Errorf("region: cblq save level codes: %w", err)
		}
	}
	if dense {
		if err := binary.Write(w, binary.LittleEndian, uint32(c.denseSuffixLen)); err != nil {
			return fmt.Errorf("region: cblq save dense suffix length: %w", err)
		}
		if _, err := w.Write(c.denseSuffix); err != nil {
			return fmt.Errorf("region: cblq save dense suffix: %w", err)
		}
	}
	return nil
}

func (c *CBLQ) Load(r io.Reader) error {
	var dim uint8
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("region: cblq load dim: %w", err)
	}
	var domainSize uint32
	if err := binary.Read(r, binary.LittleEndian, &domainSize); err != nil {
		return fmt.Errorf("region: cblq load domain size: %w", err)
	}
	var dense bool
	if err := binary.Read(r, binary.LittleEndian, &dense); err != nil {
		return fmt.Errorf("region: cblq load dense flag: %w", err)
	}
	var numLevels uint32
	if err := binary.Read(r, binary.LittleEndian, &numLevels); err != nil {
		return fmt.Errorf("region: cblq load level count: %w", err)
	}
	c.dim = int(dim)
	c.domainSize = int(domainSize)
	c.levels = make([][]uint8, numLevels)
	for i := range c.levels {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return fmt.Errorf("region: cblq load level length: %w", err)
		}
		buf := make([]uint8, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("region: cblq load level codes: %w", err)
		}
		c.levels[i] = buf
	}
	if dense {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return fmt.Errorf("region: cblq load dense suffix length: %w", err)
		}
		buf := make([]byte, (n+7)/8)
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("region: cblq load dense suffix: %w", err)
		}
		c.denseSuffix = buf
		c.denseSuffixLen = int(n)
	}
	return nil
}

type cblqBuilder struct {
	dim        int
	domainSize int
	member     []bool
	dense      bool
}

func newCBLQBuilder(dim, domainSize int) *cblqBuilder {
	return &cblqBuilder{dim: dim, domainSize: domainSize, member: make([]bool, domainSize)}
}

func (b *cblqBuilder) InsertBits(runStart, runLength uint32) {
	for i := uint32(0); i < runLength; i++ {
		b.member[runStart+i] = true
	}
}

func (b *cblqBuilder) Finish() Region {
	return buildCBLQ(b.dim, b.domainSize, func(i uint64) bool { return b.member[i] }, b.dense)
}

// NewCBLQBuilderDense is like the region.New(TypeCBLQn, domainSize)
// factory but additionally requests the dense-suffix packing (§4.3) for
// the deepest level once built.
func NewCBLQBuilderDense(dim, domainSize int) Builder {
	b := newCBLQBuilder(dim, domainSize)
	b.dense = true
	return b
}

// BuildCBLQFromRIDs is a direct constructor bypassing the Builder
// interface, used by tests and by the §4.2 converter's compaction path.
func BuildCBLQFromRIDs(dim, domainSize int, rids []uint32, dense bool) *CBLQ {
	member := make([]bool, domainSize)
	for _, r := range rids {
		if int(r) < domainSize {
			member[r] = true
		}
	}
	return buildCBLQ(dim, domainSize, func(i uint64) bool { return member[i] }, dense)
}
