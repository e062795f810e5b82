package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ridx/alloc"
	"ridx/encoding"
	"ridx/indexing"
	"ridx/partition"
	"ridx/quant"
	"ridx/query"
	"ridx/region"
	"ridx/univ"
)

// buildSource constructs a single-partition, single-variable partitioned
// index file the same way query's own test fixtures do.
func buildSource(t *testing.T) *partition.Reader {
	t.Helper()
	values := []uint64{0, 0, 0, 2, 1, 1, 1, 0}
	q, err := quant.NewExplicitQuantizer(univ.Uint8, []univ.Value{
		univ.Uint(univ.Uint8, 0), univ.Uint(univ.Uint8, 1), univ.Uint(univ.Uint8, 2),
	})
	require.NoError(t, err)

	b := indexing.NewBuilder(region.TypeBitmap, len(values), q, nil)
	for _, v := range values {
		require.NoError(t, b.Add(univ.Uint(univ.Uint8, v)))
	}
	idx, err := b.Finish()
	require.NoError(t, err)
	encIdx, err := indexing.ReEncode(idx, encoding.Range{})
	require.NoError(t, err)

	meta := &partition.Metadata{
		Datatype:     univ.Uint8,
		DomainOffset: 0,
		DomainLength: uint64(len(values)),
		Encoding:     encIdx.Encoding,
		RegionType:   encIdx.RegionType,
		Binning:      encIdx.Binning,
	}
	backing := partition.NewMemBacking()
	w := partition.NewWriter(backing, alloc.NewSerial(16), nil)
	_, err = w.WritePartition(meta, encIdx.Regions)
	require.NoError(t, err)
	require.NoError(t, w.Finalize())

	reader, err := partition.Open(backing)
	require.NoError(t, err)
	return reader
}

func TestBuildQuerySingleConstraint(t *testing.T) {
	sources := query.Sources{"x": buildSource(t)}
	q, err := buildQuery(sources, []string{"x=1,2"}, "")
	require.NoError(t, err)
	require.Len(t, q, 1)
}

func TestBuildQueryRequiresOpForMultipleConstraints(t *testing.T) {
	sources := query.Sources{"x": buildSource(t)}
	_, err := buildQuery(sources, []string{"x=0,1", "x=1,2"}, "")
	require.Error(t, err)

	q, err := buildQuery(sources, []string{"x=0,1", "x=1,2"}, "union")
	require.NoError(t, err)
	require.Len(t, q, 3) // two constraint terms + one n-ary term
}

func TestBuildQueryRejectsUnboundVariable(t *testing.T) {
	sources := query.Sources{"x": buildSource(t)}
	_, err := buildQuery(sources, []string{"y=0,1"}, "")
	require.Error(t, err)
}

func TestParseOp(t *testing.T) {
	op, err := parseOp("intersect")
	require.NoError(t, err)
	require.Equal(t, encoding.OpIntersect, op)

	_, err = parseOp("bogus")
	require.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	p, err := parsePolicy("always")
	require.NoError(t, err)
	require.Equal(t, query.Always, p)

	p, err = parsePolicy("")
	require.NoError(t, err)
	require.Equal(t, query.Auto, p)

	_, err = parsePolicy("bogus")
	require.Error(t, err)
}
