// Package region implements the engine's compact RID-set representations
// (§C1/§4.1): inverted list (II), compressed inverted list (CII), a flat
// bitmap, a word-aligned-hybrid compressed bitmap (WAH), and a
// hierarchical quadtree-like encoding (CBLQ) — together with a uniform
// set-operations algebra (union, intersection, difference, symmetric
// difference, complement) dispatched dynamically across the variants.
//
// Regions are immutable once built; the in-place operation variants are
// only legal when the caller holds sole ownership of the first operand's
// storage (§5).
package region

import (
	"fmt"
	"io"
	"sort"
)

// Type identifies a region's concrete encoding. The numeric value is
// also the on-disk tag byte used by the partitioned index file format
// (§6): a region payload always begins with one Type byte.
type Type uint8

const (
	TypeII Type = iota + 1
	TypeCII
	TypeBitmap
	TypeWAH
	TypeCBLQ2
	TypeCBLQ3
	TypeCBLQ4
)

func (t Type) String() string {
	switch t {
	case TypeII:
		return "ii"
	case TypeCII:
		return "cii"
	case TypeBitmap:
		return "bitmap"
	case TypeWAH:
		return "wah"
	case TypeCBLQ2:
		return "cblq-2"
	case TypeCBLQ3:
		return "cblq-3"
	case TypeCBLQ4:
		return "cblq-4"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// CBLQDimension returns the CBLQ dimension n for a CBLQ region type, or
// 0 if t is not a CBLQ type.
func (t Type) CBLQDimension() int {
	switch t {
	case TypeCBLQ2:
		return 2
	case TypeCBLQ3:
		return 3
	case TypeCBLQ4:
		return 4
	default:
		return 0
	}
}

// Region is the polymorphic interface every encoding variant implements
// (§4.1).
type Region interface {
	// Type reports the concrete encoding.
	Type() Type
	// SizeInBytes reports the region's encoded size, used by the query
	// cost model (§4.8).
	SizeInBytes() int
	// ElementCount reports the number of RIDs in the set. Never exceeds
	// DomainSize.
	ElementCount() int
	// DomainSize reports the universe size [0, DomainSize) this region
	// is defined over.
	DomainSize() int
	// ConvertToRIDs decodes the region to a sorted slice of RIDs.
	ConvertToRIDs() []uint32
	// Save writes the region's binary payload (not including the Type
	// tag byte, which the caller writes — see partition.SaveRegion).
	Save(w io.Writer) error
	// Load reads a binary payload written by Save into this region.
	Load(r io.Reader) error
	// Equals reports set equality: same RIDs, same DomainSize,
	// regardless of concrete encoding or representation details.
	Equals(other Region) bool
	// Uniform reports whether the region is provably the all-empty
	// (filled=false) or all-full (filled=true) region for its domain;
	// ok is false if the region is a genuine mixed set. Used by the
	// operand-uniformity short-circuit (§4.1).
	Uniform() (filled bool, ok bool)
}

// ErrOperandIncompatible is returned when two regions participating in
// an operation have incompatible domains or (for CBLQ) conflicting
// dense-suffix density (§4.3, §7).
var ErrOperandIncompatible = fmt.Errorf("region: operand incompatible")

// MakeUniform constructs the canonical all-empty or all-filled region of
// the given type and domain size (§4.1).
func MakeUniform(t Type, domainSize int, filled bool) (Region, error) {
	switch t {
	case TypeII:
		return newUniformII(domainSize, filled), nil
	case TypeCII:
		return newUniformCII(domainSize, filled), nil
	case TypeBitmap:
		return newUniformBitmap(domainSize, filled), nil
	case TypeWAH:
		return newUniformWAH(domainSize, filled), nil
	case TypeCBLQ2, TypeCBLQ3, TypeCBLQ4:
		return newUniformCBLQ(t.CBLQDimension(), domainSize, filled), nil
	default:
		return nil, fmt.Errorf("region: unknown region type %d", t)
	}
}

// New constructs an empty, buildable region of the given type and domain
// size, ready to receive InsertBits calls from the index builder (§4.5).
func New(t Type, domainSize int) (Builder, error) {
	switch t {
	case TypeII:
		return newIIBuilder(domainSize), nil
	case TypeCII:
		return newCIIBuilder(domainSize), nil
	case TypeBitmap:
		return newBitmapBuilder(domainSize), nil
	case TypeWAH:
		return newWAHBuilder(domainSize), nil
	case TypeCBLQ2, TypeCBLQ3, TypeCBLQ4:
		return newCBLQBuilder(t.CBLQDimension(), domainSize), nil
	default:
		return nil, fmt.Errorf("region: unknown region type %d", t)
	}
}

// Builder accumulates RIDs (as runs, per §4.5 step 2) for a single region
// before it is finalized into an immutable Region.
type Builder interface {
	// InsertBits records that RIDs [runStart, runStart+runLength) belong
	// to this region.
	InsertBits(runStart, runLength uint32)
	// Finish finalizes the builder into an immutable Region.
	Finish() Region
}

// LoadRegion constructs a zero-value region of the given type and loads
// its payload from r (§6: the caller has already consumed the one-byte
// type tag that precedes every region payload on disk).
func LoadRegion(t Type, r io.Reader) (Region, error) {
	var reg Region
	switch t {
	case TypeII:
		reg = &II{}
	case TypeCII:
		reg = &CII{}
	case TypeBitmap:
		reg = &Bitmap{}
	case TypeWAH:
		reg = &WAH{}
	case TypeCBLQ2, TypeCBLQ3, TypeCBLQ4:
		reg = &CBLQ{}
	default:
		return nil, fmt.Errorf("region: unknown region type %d", t)
	}
	if err := reg.Load(r); err != nil {
		return nil, fmt.Errorf("region: load %s: %w", t, err)
	}
	return reg, nil
}

// RIDsToRegion is a convenience used by tests and converters: builds a
// region of type t over the given domain containing exactly the given
// (sorted or unsorted) RIDs.
func RIDsToRegion(t Type, domainSize int, rids []uint32) (Region, error) {
	b, err := New(t, domainSize)
	if err != nil {
		return nil, err
	}
	sorted := append([]uint32(nil), rids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var runStart, runLen uint32
	have := false
	for _, r := range sorted {
		if have && r == runStart+runLen {
			runLen++
			continue
		}
		if have {
			b.InsertBits(runStart, runLen)
		}
		runStart, runLen, have = r, 1, true
	}
	if have {
		b.InsertBits(runStart, runLen)
	}
	return b.Finish(), nil
}
