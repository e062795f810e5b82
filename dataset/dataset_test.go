package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ridx/univ"
)

func TestSliceStream(t *testing.T) {
	values := []univ.Value{univ.Uint(univ.Uint8, 1), univ.Uint(univ.Uint8, 2)}
	s := NewSliceStream(values)
	got, err := ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, values, got)

	_, ok, err := s.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTextStreamParsesUint(t *testing.T) {
	s := NewTextStream(strings.NewReader("1\n2\n\n3\n"), univ.Uint8)
	got, err := ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, []univ.Value{
		univ.Uint(univ.Uint8, 1),
		univ.Uint(univ.Uint8, 2),
		univ.Uint(univ.Uint8, 3),
	}, got)
	require.NoError(t, s.Close())
}

func TestTextStreamParsesFloat(t *testing.T) {
	s := NewTextStream(strings.NewReader("1.5\n-2.25\n"), univ.Float64)
	got, err := ReadAll(s)
	require.NoError(t, err)
	require.Len(t, got, 2)
	f0, err := got[0].AsFloat64()
	require.NoError(t, err)
	require.Equal(t, 1.5, f0)
}

func TestTextStreamRejectsMalformedLine(t *testing.T) {
	s := NewTextStream(strings.NewReader("not-a-number\n"), univ.Uint8)
	_, err := ReadAll(s)
	require.Error(t, err)
}
