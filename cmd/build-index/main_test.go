package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ridx/engineconfig"
	"ridx/parallelgen"
	"ridx/univ"
)

func TestSplitDomainEvenly(t *testing.T) {
	ranges := splitDomain(100, 4)
	require.Equal(t, []parallelgen.ValueRange{{Lo: 0, Hi: 25}, {Lo: 25, Hi: 50}, {Lo: 50, Hi: 75}, {Lo: 75, Hi: 100}}, ranges)
}

func TestSplitDomainRemainderGoesToLastRange(t *testing.T) {
	ranges := splitDomain(10, 3)
	require.Equal(t, []parallelgen.ValueRange{{Lo: 0, Hi: 3}, {Lo: 3, Hi: 6}, {Lo: 6, Hi: 10}}, ranges)
}

func TestSplitDomainClampsPartitionsToDomainSize(t *testing.T) {
	ranges := splitDomain(2, 10)
	require.Len(t, ranges, 2)
	require.Equal(t, 0, ranges[0].Lo)
	require.Equal(t, 2, ranges[len(ranges)-1].Hi)
}

func TestResolveQuantizerSigbits(t *testing.T) {
	cfg := engineconfig.Default()
	cfg.BinningStrategy = "sigbits"
	cfg.BinningParameter = 4
	q, err := resolveQuantizer(cfg, univ.Uint32, "")
	require.NoError(t, err)
	require.Equal(t, univ.Uint32, q.Datatype())
}

func TestResolveQuantizerExplicitRequiresBoundaries(t *testing.T) {
	cfg := engineconfig.Default()
	cfg.BinningStrategy = "explicit"
	_, err := resolveQuantizer(cfg, univ.Uint32, "")
	require.Error(t, err)
}

func TestResolveQuantizerExplicitParsesBoundaries(t *testing.T) {
	cfg := engineconfig.Default()
	cfg.BinningStrategy = "explicit"
	q, err := resolveQuantizer(cfg, univ.Uint32, "10,20,30")
	require.NoError(t, err)
	require.Equal(t, univ.Uint32, q.Datatype())
}
