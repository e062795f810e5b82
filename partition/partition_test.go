package partition

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ridx/encoding"
	"ridx/quant"
	"ridx/region"
	"ridx/univ"
)

func makeMetadata(t *testing.T, domainLength uint64) *Metadata {
	t.Helper()
	q, err := quant.NewExplicitQuantizer(univ.Uint8, []univ.Value{
		univ.Uint(univ.Uint8, 0), univ.Uint(univ.Uint8, 1), univ.Uint(univ.Uint8, 2),
	})
	require.NoError(t, err)
	binning := quant.NewBinningSpec(q)
	require.NoError(t, binning.Populate([]quant.QKey{1, 2, 3}))
	return &Metadata{
		Datatype:     univ.Uint8,
		DomainOffset: 0,
		DomainLength: domainLength,
		Encoding:     encoding.Equality{},
		RegionType:   region.TypeII,
		Binning:      binning,
	}
}

func makeRegions(t *testing.T, domainSize int) []region.Region {
	t.Helper()
	sets := [][]uint32{
		{0, 1, 2, 7, 12, 13, 15},
		{4, 5, 6, 11, 14},
		{3, 8, 9, 10},
	}
	regions := make([]region.Region, len(sets))
	for i, rids := range sets {
		r, err := region.RIDsToRegion(region.TypeII, domainSize, rids)
		require.NoError(t, err)
		regions[i] = r
	}
	return regions
}

// serialAllocator is a minimal Allocator for tests; package alloc's own
// serial allocator implements the same contract with finalize bookkeeping.
type serialAllocator struct{ next int64 }

func (a *serialAllocator) Allocate(size int64) (int64, error) {
	off := a.next
	a.next += size
	return off, nil
}

func TestWriteReadRoundTrip(t *testing.T) {
	backing := NewMemBacking()
	w := NewWriter(backing, &serialAllocator{next: headerSize}, nil)

	meta := makeMetadata(t, 16)
	regions := makeRegions(t, 16)
	id, err := w.WritePartition(meta, regions)
	require.NoError(t, err)
	require.Equal(t, 0, id)
	require.NoError(t, w.Finalize())

	r, err := Open(backing)
	require.NoError(t, err)
	require.Equal(t, 1, r.NumPartitions())

	gotMeta, err := r.Metadata(0)
	require.NoError(t, err)
	require.Equal(t, uint64(16), gotMeta.DomainLength)
	k, err := gotMeta.Binning.NumBins()
	require.NoError(t, err)
	require.Equal(t, 3, k)

	got, err := r.ReadAllRegions(0)
	require.NoError(t, err)
	require.Equal(t, 3, len(got))
	for i, want := range regions {
		require.True(t, want.Equals(got[i]), "region %d mismatch", i)
	}

	subset, err := r.ReadRegions(0, []int{0, 2})
	require.NoError(t, err)
	require.Len(t, subset, 2)
	require.True(t, regions[0].Equals(subset[0]))
	require.True(t, regions[2].Equals(subset[2]))
}

func TestMultiplePartitionsOrdering(t *testing.T) {
	backing := NewMemBacking()
	w := NewWriter(backing, &serialAllocator{next: headerSize}, nil)

	for i := 0; i < 3; i++ {
		_, err := w.WritePartition(makeMetadata(t, 16), makeRegions(t, 16))
		require.NoError(t, err)
	}
	require.NoError(t, w.Finalize())

	r, err := Open(backing)
	require.NoError(t, err)
	require.Equal(t, 3, r.NumPartitions())
	for i := 1; i < len(r.partitionOffsets); i++ {
		require.Less(t, r.partitionOffsets[i-1], r.partitionOffsets[i])
	}
}
