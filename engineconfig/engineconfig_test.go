package engineconfig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ridx/encoding"
	"ridx/region"
)

func TestDefaultResolves(t *testing.T) {
	cfg := Default()
	rt, err := cfg.ResolveRegionType()
	require.NoError(t, err)
	require.Equal(t, region.TypeWAH, rt)

	enc, err := cfg.ResolveIndexEncoding()
	require.NoError(t, err)
	require.IsType(t, encoding.Range{}, enc)
}

func TestResolveRejectsUnknownNames(t *testing.T) {
	cfg := Default()
	cfg.RegionType = "roaring"
	_, err := cfg.ResolveRegionType()
	require.Error(t, err)

	cfg2 := Default()
	cfg2.IndexEncoding = "bogus"
	_, err = cfg2.ResolveIndexEncoding()
	require.Error(t, err)
}

func TestParseDatasetDescriptor(t *testing.T) {
	input := "/data/temperature.raw\nfloat64 C 100 200 300\n"
	d, err := ParseDatasetDescriptor(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, "/data/temperature.raw", d.Path)
	require.Equal(t, "float64", d.Datatype)
	require.Equal(t, "C", d.Order)
	require.Equal(t, []int{100, 200, 300}, d.Dims)
}

func TestParseDatasetDescriptorRejectsBadOrder(t *testing.T) {
	_, err := ParseDatasetDescriptor(strings.NewReader("/x\nfloat64 ROW 10\n"))
	require.Error(t, err)
}

func TestParseDatabaseDescriptor(t *testing.T) {
	input := `
# comment
temperature.metapath=/meta/temperature.txt
temperature.indexpath=/idx/temperature.ridx

pressure.metapath=/meta/pressure.txt
pressure.indexpath=/idx/pressure.ridx
`
	db, err := ParseDatabaseDescriptor(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, "/meta/temperature.txt", db.MetaPaths["temperature"])
	require.Equal(t, "/idx/temperature.ridx", db.IndexPaths["temperature"])
	require.Equal(t, "/meta/pressure.txt", db.MetaPaths["pressure"])
	require.Equal(t, "/idx/pressure.ridx", db.IndexPaths["pressure"])
}

func TestParseDatabaseDescriptorRejectsMalformedLine(t *testing.T) {
	_, err := ParseDatabaseDescriptor(strings.NewReader("not-a-valid-line"))
	require.Error(t, err)
}
