package region

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WAH implements the word-aligned-hybrid compressed bitmap (§4): each
// 32-bit word either stores 31 literal bitmap bits (MSB clear) or a
// run-length-compressed "fill" of all-0 or all-1 31-bit blocks (MSB
// set, next bit is the fill bit, remaining 30 bits are the block
// count).
type WAH struct {
	domainSize int
	words      []uint32
}

const (
	wahBlockBits  = 31
	wahFillMask   = uint32(1) << 31
	wahFillBit    = uint32(1) << 30
	wahCountMask  = wahFillBit - 1
	wahLiteralAll = uint32(1)<<wahBlockBits - 1
)

func numWAHBlocks(domainSize int) int { return (domainSize + wahBlockBits - 1) / wahBlockBits }

func newUniformWAH(domainSize int, filled bool) *WAH {
	w := &WAH{domainSize: domainSize}
	nBlocks := numWAHBlocks(domainSize)
	if nBlocks == 0 {
		return w
	}
	if !filled {
		w.words = []uint32{wahFillMask | uint32(nBlocks)} // 0-fill, fill bit clear
		return w
	}
	w.words = []uint32{wahFillMask | wahFillBit | uint32(nBlocks)}
	return w
}

func (r *WAH) Type() Type      { return TypeWAH }
func (r *WAH) DomainSize() int { return r.domainSize }

func (r *WAH) SizeInBytes() int { return 4 + 4*len(r.words) }

func (r *WAH) ElementCount() int {
	return len(r.ConvertToRIDs())
}

func (r *WAH) ConvertToRIDs() []uint32 {
	out := make([]uint32, 0)
	block := 0
	for _, word := range r.words {
		if word&wahFillMask != 0 {
			count := int(word & wahCountMask)
			if word&wahFillBit != 0 {
				for i := 0; i < count; i++ {
					appendBlockBits(&out, block+i, wahLiteralAll, r.domainSize)
				}
			}
			block += count
		} else {
			appendBlockBits(&out, block, word, r.domainSize)
			block++
		}
	}
	return out
}

func appendBlockBits(out *[]uint32, block int, bitsVal uint32, domainSize int) {
	base := block * wahBlockBits
	for i := 0; i < wahBlockBits; i++ {
		rid := base + i
		if rid >= domainSize {
			return
		}
		if bitsVal&(1<<uint(i)) != 0 {
			*out = append(*out, uint32(rid))
		}
	}
}

func (r *WAH) Uniform() (filled bool, ok bool) {
	switch len(r.words) {
	case 0:
		return false, true
	case 1:
		w := r.words[0]
		if w&wahFillMask == 0 {
			return false, false
		}
		nBlocks := numWAHBlocks(r.domainSize)
		if int(w&wahCountMask) != nBlocks {
			return false, false
		}
		return w&wahFillBit != 0, true
	default:
		return false, false
	}
}

func (r *WAH) Equals(other Region) bool { return regionsEqualByRIDs(r, other) }

func (r *WAH) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(r.domainSize)); err != nil {
		return fmt.Errorf("region: wah save domain size: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(r.words))); err != nil {
		return fmt.Errorf("region: wah save word count: %w", err)
	}
	for _, word := range r.words {
		if err := binary.Write(w, binary.LittleEndian, word); err != nil {
			return fmt.Errorf("region: wah save word: %w", err)
		}
	}
	return nil
}

func (r *WAH) Load(reader io.Reader) error {
	var domainSize, wordCount uint32
	if err := binary.Read(reader, binary.LittleEndian, &domainSize); err != nil {
		return fmt.Errorf("region: wah load domain size: %w", err)
	}
	if err := binary.Read(reader, binary.LittleEndian, &wordCount); err != nil {
		return fmt.Errorf("region: wah load word count: %w", err)
	}
	r.domainSize = int(domainSize)
	r.words = make([]uint32, wordCount)
	for i := range r.words {
		if err := binary.Read(reader, binary.LittleEndian, &r.words[i]); err != nil {
			return fmt.Errorf("region: wah load word: %w", err)
		}
	}
	return nil
}

// wahEncoder incrementally appends 31-bit blocks, coalescing runs of
// identical all-0/all-1 blocks into fill words (§4.1).
type wahEncoder struct {
	words           []uint32
	pendingFillBit  uint32 // 0 or wahFillBit
	pendingFillLen  int
	havePendingFill bool
}

func (e *wahEncoder) flushFill() {
	if e.havePendingFill && e.pendingFillLen > 0 {
		e.words = append(e.words, wahFillMask|e.pendingFillBit|uint32(e.pendingFillLen))
	}
	e.havePendingFill = false
	e.pendingFillLen = 0
}

func (e *wahEncoder) appendBlock(value uint32) {
	if value == 0 || value == wahLiteralAll {
		fillBit := uint32(0)
		if value == wahLiteralAll {
			fillBit = wahFillBit
		}
		if e.havePendingFill && e.pendingFillBit == fillBit {
			e.pendingFillLen++
			return
		}
		e.flushFill()
		e.havePendingFill = true
		e.pendingFillBit = fillBit
		e.pendingFillLen = 1
		return
	}
	e.flushFill()
	e.words = append(e.words, value)
}

func (e *wahEncoder) finish() []uint32 {
	e.flushFill()
	return e.words
}

type wahBuilder struct {
	domainSize int
	bits       []uint32 // one entry per 31-bit block, raw literal bits
}

func newWAHBuilder(domainSize int) *wahBuilder {
	return &wahBuilder{domainSize: domainSize, bits: make([]uint32, numWAHBlocks(domainSize))}
}

func (b *wahBuilder) InsertBits(runStart, runLength uint32) {
	for i := uint32(0); i < runLength; i++ {
		rid := runStart + i
		block := rid / wahBlockBits
		bit := rid % wahBlockBits
		b.bits[block] |= uint32(1) << bit
	}
}

func (b *wahBuilder) Finish() Region {
	enc := &wahEncoder{}
	for _, blk := range b.bits {
		enc.appendBlock(blk)
	}
	return &WAH{domainSize: b.domainSize, words: enc.finish()}
}

// wahDecoder yields the bitmap one 31-bit block at a time, transparently
// expanding fill words, for use by the block-level merge ops below.
type wahDecoder struct {
	words     []uint32
	wordIdx   int
	curValue  uint32
	curLeft   int
	totalLeft int
}

func newWAHDecoder(w *WAH) *wahDecoder {
	d := &wahDecoder{words: w.words, totalLeft: numWAHBlocks(w.domainSize)}
	d.advanceWord()
	return d
}

func (d *wahDecoder) advanceWord() {
	for d.curLeft == 0 && d.wordIdx < len(d.words) {
		word := d.words[d.wordIdx]
		d.wordIdx++
		if word&wahFillMask != 0 {
			count := int(word & wahCountMask)
			if count == 0 {
				continue
			}
			if word&wahFillBit != 0 {
				d.curValue = wahLiteralAll
			} else {
				d.curValue = 0
			}
			d.curLeft = count
		} else {
			d.curValue = word
			d.curLeft = 1
		}
	}
}

// peek returns the current block's bits; if the decoder is exhausted
// (past the last encoded word but still within the logical domain, which
// only happens for a zero-word uniform-empty region), it returns 0.
func (d *wahDecoder) peek() uint32 {
	if d.curLeft == 0 {
		return 0
	}
	return d.curValue
}

// remaining reports how many more blocks at the current value remain
// before the next word boundary.
func (d *wahDecoder) remaining() int {
	if d.curLeft == 0 {
		return d.totalLeft
	}
	return d.curLeft
}

func (d *wahDecoder) advance(n int) {
	d.totalLeft -= n
	if d.curLeft == 0 {
		return
	}
	d.curLeft -= n
	d.advanceWord()
}

func wahBinaryOp(a, b *WAH, op func(x, y uint32) uint32) (*WAH, error) {
	if a.domainSize != b.domainSize {
		return nil, ErrOperandIncompatible
	}
	da, db := newWAHDecoder(a), newWAHDecoder(b)
	enc := &wahEncoder{}
	left := numWAHBlocks(a.domainSize)
	for left > 0 {
		step := da.remaining()
		if r := db.remaining(); r < step {
			step = r
		}
		if step > left {
			step = left
		}
		if step <= 0 {
			break
		}
		value := op(da.peek(), db.peek()) & wahLiteralAll
		for i := 0; i < step; i++ {
			enc.appendBlock(value)
		}
		da.advance(step)
		db.advance(step)
		left -= step
	}
	return &WAH{domainSize: a.domainSize, words: enc.finish()}, nil
}

func (r *WAH) complement() *WAH {
	d := newWAHDecoder(r)
	enc := &wahEncoder{}
	left := numWAHBlocks(r.domainSize)
	for left > 0 {
		step := d.remaining()
		if step > left {
			step = left
		}
		value := (^d.peek()) & wahLiteralAll
		for i := 0; i < step; i++ {
			enc.appendBlock(value)
		}
		d.advance(step)
		left -= step
	}
	return &WAH{domainSize: r.domainSize, words: enc.finish()}
}
