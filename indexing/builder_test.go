package indexing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ridx/encoding"
	"ridx/quant"
	"ridx/region"
	"ridx/univ"
)

// domainValues is Scenario A/B's 16-element, 3-bin domain from spec §8:
// [0,0,0,2,1,1,1,0,2,2,2,1,0,0,1,0].
var domainValues = []uint64{0, 0, 0, 2, 1, 1, 1, 0, 2, 2, 2, 1, 0, 0, 1, 0}

func explicitQuantizer(t *testing.T) quant.Quantizer {
	t.Helper()
	q, err := quant.NewExplicitQuantizer(univ.Uint8, []univ.Value{
		univ.Uint(univ.Uint8, 0),
		univ.Uint(univ.Uint8, 1),
		univ.Uint(univ.Uint8, 2),
	})
	require.NoError(t, err)
	return q
}

func buildScenarioA(t *testing.T, regionType region.Type) *BinnedIndex {
	t.Helper()
	b := NewBuilder(regionType, len(domainValues), explicitQuantizer(t), nil)
	for _, v := range domainValues {
		require.NoError(t, b.Add(univ.Uint(univ.Uint8, v)))
	}
	idx, err := b.Finish()
	require.NoError(t, err)
	return idx
}

func TestBuilderScenarioA(t *testing.T) {
	idx := buildScenarioA(t, region.TypeII)
	require.Equal(t, 3, len(idx.Bins))
	k, err := idx.Binning.NumBins()
	require.NoError(t, err)
	require.Equal(t, 3, k)

	require.Equal(t, []uint32{0, 1, 2, 7, 12, 13, 15}, idx.Bins[0].ConvertToRIDs())
	require.Equal(t, []uint32{4, 5, 6, 11, 14}, idx.Bins[1].ConvertToRIDs())
	require.Equal(t, []uint32{3, 8, 9, 10}, idx.Bins[2].ConvertToRIDs())

	union, err := region.Union(idx.Bins[0], idx.Bins[2])
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 2, 3, 7, 8, 9, 10, 12, 13, 15}, union.ConvertToRIDs())
}

func TestReEncodeRangeScenarioB(t *testing.T) {
	idx := buildScenarioA(t, region.TypeBitmap)
	enc, err := ReEncode(idx, encoding.Range{})
	require.NoError(t, err)
	require.Equal(t, 3, len(enc.Regions))

	// value range [0,1] -> bins [0,2); value range [1,2] -> bins [1,3).
	left, err := enc.BinRangeRegion(0, 2, false)
	require.NoError(t, err)
	right, err := enc.BinRangeRegion(1, 3, false)
	require.NoError(t, err)

	got, err := region.Intersect(left, right)
	require.NoError(t, err)
	require.Equal(t, []uint32{4, 5, 6, 11, 14}, got.ConvertToRIDs())
}

func TestReEncodeAllEncodingsAgree(t *testing.T) {
	idx := buildScenarioA(t, region.TypeBitmap)
	encs := []encoding.IndexEncoding{
		encoding.Equality{}, encoding.Range{}, encoding.Interval{},
		encoding.BinaryComponent{}, encoding.Hierarchical{},
	}
	want := []uint32{0, 1, 2, 3, 7, 8, 9, 10, 12, 13, 15} // value 0 or 2
	for _, e := range encs {
		enc, err := ReEncode(idx, e)
		require.NoError(t, err, e.Name())

		a, err := enc.BinRangeRegion(0, 1, false)
		require.NoError(t, err, e.Name())
		b, err := enc.BinRangeRegion(2, 3, false)
		require.NoError(t, err, e.Name())
		got, err := region.Union(a, b)
		require.NoError(t, err, e.Name())
		require.Equal(t, want, got.ConvertToRIDs(), e.Name())

		bc, err := enc.BinRangeRegion(0, 1, true)
		require.NoError(t, err, e.Name())
		cc, err := enc.BinRangeRegion(2, 3, true)
		require.NoError(t, err, e.Name())
		gotComplement, err := region.Union(bc, cc)
		require.NoError(t, err, e.Name())
		require.Equal(t, want, gotComplement.ConvertToRIDs(), e.Name())
	}
}
