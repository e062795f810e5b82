package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDims(t *testing.T) {
	dims, err := parseDims("10, 20,30")
	require.NoError(t, err)
	require.Equal(t, []int{10, 20, 30}, dims)
}

func TestParseDimsRejectsNonInteger(t *testing.T) {
	_, err := parseDims("10,abc")
	require.Error(t, err)
}
