package indexing

import (
	"fmt"

	"ridx/encoding"
	"ridx/quant"
	"ridx/region"
	"ridx/univ"
)

// EncodedIndex is a binned index that has been rewritten under some
// IndexEncoding (§4.4): Regions holds the encoding's stored regions
// rather than one region per bin.
type EncodedIndex struct {
	Encoding   encoding.IndexEncoding
	RegionType region.Type
	Datatype   univ.Datatype
	DomainSize int
	Binning    *quant.BinningSpec
	Regions    []region.Region
}

// ReEncode consumes an equality-encoded BinnedIndex and produces an
// EncodedIndex under enc, a separate step from the build itself (§4.5
// closing sentence).
func ReEncode(idx *BinnedIndex, enc encoding.IndexEncoding) (*EncodedIndex, error) {
	k, err := idx.Binning.NumBins()
	if err != nil {
		return nil, fmt.Errorf("indexing: re-encode: %w", err)
	}
	if k != len(idx.Bins) {
		return nil, fmt.Errorf("indexing: re-encode: binning spec has %d bins but index has %d", k, len(idx.Bins))
	}
	regions, err := enc.EncodedRegions(idx.Bins, k)
	if err != nil {
		return nil, fmt.Errorf("indexing: re-encode with %s: %w", enc.Name(), err)
	}
	return &EncodedIndex{
		Encoding:   enc,
		RegionType: idx.RegionType,
		Datatype:   idx.Datatype,
		DomainSize: idx.DomainSize,
		Binning:    idx.Binning,
		Regions:    regions,
	}, nil
}

// BinRangeRegion evaluates "union of bins [lb, ub)" against this index's
// stored regions, choosing the direct or prefer_complement plan as
// requested (§4.4, §4.8 step 3). Callers that want cost-based plan
// selection should compare byte costs of both plans themselves (query
// does this); this is the shared plan-execution primitive both the
// direct caller and the query evaluator use.
func (e *EncodedIndex) BinRangeRegion(lb, ub int, preferComplement bool) (region.Region, error) {
	k, err := e.Binning.NumBins()
	if err != nil {
		return nil, fmt.Errorf("indexing: bin range region: %w", err)
	}
	if lb < 0 || ub > k || lb > ub {
		return nil, fmt.Errorf("indexing: bin range [%d,%d) out of bounds [0,%d)", lb, ub, k)
	}
	if lb == ub {
		return region.MakeUniform(e.RegionType, e.DomainSize, false)
	}
	if lb == 0 && ub == k {
		return region.MakeUniform(e.RegionType, e.DomainSize, true)
	}
	expr, err := e.Encoding.RegionMath(k, lb, ub, preferComplement)
	if err != nil {
		return nil, fmt.Errorf("indexing: region math: %w", err)
	}
	lookup := make(map[int]region.Region, len(expr.RegionIDs()))
	for _, id := range expr.RegionIDs() {
		if id < 0 || id >= len(e.Regions) {
			return nil, fmt.Errorf("indexing: region math references region %d out of %d stored", id, len(e.Regions))
		}
		lookup[id] = e.Regions[id]
	}
	return expr.Eval(lookup)
}
