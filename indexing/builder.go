// Package indexing implements the one-pass index builder (§4.5) and the
// re-encoding step that turns an equality-encoded binned index into any
// other index encoding (§4.4).
package indexing

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"ridx/logging"
	"ridx/quant"
	"ridx/region"
	"ridx/univ"
)

// BinnedIndex is the equality-encoded result of a Builder run: one region
// per distinct observed QKey, in ascending QKey order, plus the binning
// spec that maps values to bin indices.
type BinnedIndex struct {
	RegionType region.Type
	Datatype   univ.Datatype
	DomainSize int
	Binning    *quant.BinningSpec
	Bins       []region.Region
}

// Builder performs the one-pass build described in §4.5: quantize each
// value to a QKey, open a region builder the first time a QKey is seen,
// detect runs of consecutive equal QKeys and feed them to InsertBits, and
// finalize everything in sorted QKey order at the end of the stream.
type Builder struct {
	regionType region.Type
	domainSize int
	quantizer  quant.Quantizer
	log        *zap.SugaredLogger

	builders map[quant.QKey]region.Builder
	order    []quant.QKey // first-seen order; sorted at Finish

	haveRun  bool
	runKey   quant.QKey
	runStart uint32
	runLen   uint32

	nextRID uint32
	closed  bool
}

// NewBuilder constructs a Builder over a domain of domainSize RIDs using
// the given region representation and quantizer. logger may be nil.
func NewBuilder(regionType region.Type, domainSize int, quantizer quant.Quantizer, logger *zap.SugaredLogger) *Builder {
	return &Builder{
		regionType: regionType,
		domainSize: domainSize,
		quantizer:  quantizer,
		log:        logging.OrNop(logger),
		builders:   make(map[quant.QKey]region.Builder),
	}
}

// Add quantizes v and records it as the value at the next RID in stream
// order (§4.5 step 1–2). Values must be supplied in RID order, one call
// per RID, covering the whole domain before Finish is called.
func (b *Builder) Add(v univ.Value) error {
	if b.closed {
		return fmt.Errorf("indexing: builder already finished")
	}
	if int(b.nextRID) >= b.domainSize {
		return fmt.Errorf("indexing: builder received more than domainSize=%d values", b.domainSize)
	}
	key, err := b.quantizer.Quantize(v)
	if err != nil {
		return fmt.Errorf("indexing: quantize RID %d: %w", b.nextRID, err)
	}
	rid := b.nextRID
	b.nextRID++

	if b.haveRun && key == b.runKey && rid == b.runStart+b.runLen {
		b.runLen++
		return nil
	}
	b.flushRun()
	b.runKey, b.runStart, b.runLen, b.haveRun = key, rid, 1, true
	if _, ok := b.builders[key]; !ok {
		bld, err := region.New(b.regionType, b.domainSize)
		if err != nil {
			return fmt.Errorf("indexing: open encoder for new bin: %w", err)
		}
		b.builders[key] = bld
		b.order = append(b.order, key)
		b.log.Debugw("indexing: opened new bin", "qkey", key, "rid", rid)
	}
	return nil
}

func (b *Builder) flushRun() {
	if !b.haveRun {
		return
	}
	b.builders[b.runKey].InsertBits(b.runStart, b.runLen)
	b.haveRun = false
}

// Finish closes the stream: flushes the last pending run, sorts the
// observed QKeys, finalizes each region builder in that order, and
// populates the binning spec (§4.5 step 3).
func (b *Builder) Finish() (*BinnedIndex, error) {
	if b.closed {
		return nil, fmt.Errorf("indexing: builder already finished")
	}
	b.closed = true
	b.flushRun()

	sorted := append([]quant.QKey(nil), b.order...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	bins := make([]region.Region, len(sorted))
	for i, k := range sorted {
		bins[i] = b.builders[k].Finish()
	}

	binning := quant.NewBinningSpec(b.quantizer)
	if err := binning.Populate(sorted); err != nil {
		return nil, fmt.Errorf("indexing: populate binning spec: %w", err)
	}

	b.log.Infow("indexing: build finished", "bins", len(bins), "domain", b.domainSize)
	return &BinnedIndex{
		RegionType: b.regionType,
		Datatype:   b.quantizer.Datatype(),
		DomainSize: b.domainSize,
		Binning:    binning,
		Bins:       bins,
	}, nil
}
