package parallelgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ridx/encoding"
	"ridx/partition"
	"ridx/quant"
	"ridx/region"
	"ridx/univ"
)

func bigDomainValues(n int) []univ.Value {
	values := make([]univ.Value, n)
	for i := range values {
		values[i] = univ.Uint(univ.Uint8, uint64(i%30))
	}
	return values
}

func explicitQuantizer(t *testing.T, k int) quant.Quantizer {
	t.Helper()
	boundaries := make([]univ.Value, k)
	for i := 0; i < k; i++ {
		boundaries[i] = univ.Uint(univ.Uint8, uint64(i))
	}
	q, err := quant.NewExplicitQuantizer(univ.Uint8, boundaries)
	require.NoError(t, err)
	return q
}

func splitRanges(n, parts int) []ValueRange {
	size := n / parts
	ranges := make([]ValueRange, parts)
	for i := range ranges {
		lo := i * size
		hi := lo + size
		if i == parts-1 {
			hi = n
		}
		ranges[i] = ValueRange{Lo: lo, Hi: hi}
	}
	return ranges
}

// TestParallelMatchesSerial is §8 Scenario F: with a 16384-element
// domain split into four ranges, the parallel generator's output file
// must carry the same partition metadata as the serial per-range
// builds, and every partition's regions must decode to the same RID
// sets.
func TestParallelMatchesSerial(t *testing.T) {
	const n = 16384
	values := bigDomainValues(n)
	ranges := splitRanges(n, 4)

	serialBacking := partition.NewMemBacking()
	require.NoError(t, BuildSerial(values, univ.Uint8, region.TypeBitmap, explicitQuantizer(t, 30), encoding.Equality{}, ranges, serialBacking, nil))

	parallelBacking := partition.NewMemBacking()
	require.NoError(t, BuildParallel(values, univ.Uint8, region.TypeBitmap, explicitQuantizer(t, 30), encoding.Equality{}, ranges, parallelBacking, nil))

	serialReader, err := partition.Open(serialBacking)
	require.NoError(t, err)
	parallelReader, err := partition.Open(parallelBacking)
	require.NoError(t, err)

	require.Equal(t, serialReader.NumPartitions(), parallelReader.NumPartitions())
	for i := 0; i < serialReader.NumPartitions(); i++ {
		serialMeta, err := serialReader.Metadata(i)
		require.NoError(t, err)
		parallelMeta, err := parallelReader.Metadata(i)
		require.NoError(t, err)
		require.Equal(t, serialMeta.DomainOffset, parallelMeta.DomainOffset)
		require.Equal(t, serialMeta.DomainLength, parallelMeta.DomainLength)

		serialRegions, err := serialReader.ReadAllRegions(i)
		require.NoError(t, err)
		parallelRegions, err := parallelReader.ReadAllRegions(i)
		require.NoError(t, err)
		require.Equal(t, len(serialRegions), len(parallelRegions))
		for j := range serialRegions {
			require.True(t, serialRegions[j].Equals(parallelRegions[j]), "partition %d region %d mismatch", i, j)
		}
	}
}

func TestBuildSerialRoundTrip(t *testing.T) {
	const n = 64
	values := bigDomainValues(n)
	ranges := splitRanges(n, 2)

	backing := partition.NewMemBacking()
	require.NoError(t, BuildSerial(values, univ.Uint8, region.TypeII, explicitQuantizer(t, 30), encoding.Range{}, ranges, backing, nil))

	r, err := partition.Open(backing)
	require.NoError(t, err)
	require.Equal(t, 2, r.NumPartitions())
}
