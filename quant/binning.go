package quant

import (
	"fmt"
	"sort"

	"ridx/univ"
)

// BinningSpec pairs a Quantizer with the ordered list of QKeys actually
// observed during index construction. It is "unpopulated" until
// Populate is called by the index builder (§C4); only Datatype/Quantize
// are usable before population.
type BinningSpec struct {
	Quantizer Quantizer
	keys      []QKey // strictly increasing; nil until Populate
	populated bool
}

func NewBinningSpec(q Quantizer) *BinningSpec {
	return &BinningSpec{Quantizer: q}
}

// ErrUnpopulated is returned by bin-indexed operations on a BinningSpec
// that has not yet been populated by the index builder.
var ErrUnpopulated = fmt.Errorf("quant: binning spec is not yet populated")

// Populate sorts and deduplicates the given observed keys under the
// quantizer's ordering and records them as this spec's bin list. It is
// a logic error to populate an already-populated spec.
func (b *BinningSpec) Populate(observed []QKey) error {
	if b.populated {
		return fmt.Errorf("quant: binning spec already populated")
	}
	uniq := make(map[QKey]struct{}, len(observed))
	for _, k := range observed {
		uniq[k] = struct{}{}
	}
	keys := make([]QKey, 0, len(uniq))
	for k := range uniq {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	b.keys = keys
	b.populated = true
	return nil
}

// IsPopulated reports whether Populate has run.
func (b *BinningSpec) IsPopulated() bool { return b.populated }

// NumBins returns the number of distinct bins (K in the spec's index
// encoding tables).
func (b *BinningSpec) NumBins() (int, error) {
	if !b.populated {
		return 0, ErrUnpopulated
	}
	return len(b.keys), nil
}

// BinKey returns a representative Value for bin i.
func (b *BinningSpec) BinKey(i int) (univ.Value, error) {
	if !b.populated {
		return univ.Value{}, ErrUnpopulated
	}
	if i < 0 || i >= len(b.keys) {
		return univ.Value{}, fmt.Errorf("quant: bin index %d out of range [0,%d)", i, len(b.keys))
	}
	return b.Quantizer.KeyToValue(b.keys[i]), nil
}

// QKeyAt returns the QKey stored at bin index i.
func (b *BinningSpec) QKeyAt(i int) (QKey, error) {
	if !b.populated {
		return 0, ErrUnpopulated
	}
	if i < 0 || i >= len(b.keys) {
		return 0, fmt.Errorf("quant: bin index %d out of range [0,%d)", i, len(b.keys))
	}
	return b.keys[i], nil
}

// LowerBoundBin returns the smallest bin index i with bin_key(i) >=
// quantize(v).
func (b *BinningSpec) LowerBoundBin(v univ.Value) (int, error) {
	if !b.populated {
		return 0, ErrUnpopulated
	}
	qk, err := b.Quantizer.Quantize(v)
	if err != nil {
		return 0, err
	}
	return sort.Search(len(b.keys), func(i int) bool { return b.keys[i] >= qk }), nil
}

// UpperBoundBin returns the smallest bin index i with bin_key(i) >
// quantize(v).
func (b *BinningSpec) UpperBoundBin(v univ.Value) (int, error) {
	if !b.populated {
		return 0, ErrUnpopulated
	}
	qk, err := b.Quantizer.Quantize(v)
	if err != nil {
		return 0, err
	}
	return sort.Search(len(b.keys), func(i int) bool { return b.keys[i] > qk }), nil
}

// BinRange converts a value range [lb, ub) into a bin index range
// [lbBin, ubBin) per §4.8 step 1.
func (b *BinningSpec) BinRange(lb, ub univ.Value) (lbBin, ubBin int, err error) {
	lbBin, err = b.LowerBoundBin(lb)
	if err != nil {
		return 0, 0, err
	}
	ubBin, err = b.UpperBoundBin(ub)
	if err != nil {
		return 0, 0, err
	}
	if ubBin < lbBin {
		ubBin = lbBin
	}
	return lbBin, ubBin, nil
}
