package alloc

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerialAllocate(t *testing.T) {
	s := NewSerial(16)
	off, err := s.Allocate(100)
	require.NoError(t, err)
	require.Equal(t, int64(16), off)

	off, err = s.Allocate(50)
	require.NoError(t, err)
	require.Equal(t, int64(116), off)
	require.Equal(t, int64(166), s.End())
}

func TestSerialRejectsNegativeSize(t *testing.T) {
	s := NewSerial(0)
	_, err := s.Allocate(-1)
	require.Error(t, err)
}

func TestParallelAllocateDisjointOffsets(t *testing.T) {
	m := NewMaster(16, nil)
	const nclients = 4
	clients := make([]*Client, nclients)
	for i := range clients {
		clients[i] = m.NewClient()
	}

	var wg sync.WaitGroup
	offsets := make([][]int64, nclients)
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c *Client) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				off, err := c.Allocate(8)
				require.NoError(t, err)
				offsets[i] = append(offsets[i], off)
			}
			c.Close(nil)
		}(i, c)
	}
	wg.Wait()
	m.CloseSelf()

	require.NoError(t, m.Finalize())

	seen := make(map[int64]bool)
	for _, perClient := range offsets {
		for _, off := range perClient {
			require.False(t, seen[off], "offset %d allocated twice", off)
			seen[off] = true
		}
	}
	require.Equal(t, int64(16+nclients*10*8), m.End())
}

func TestParallelFinalizeAggregatesClientFailures(t *testing.T) {
	m := NewMaster(0, nil)
	c1 := m.NewClient()
	c2 := m.NewClient()

	c1.Close(errors.New("disk full"))
	c2.Close(nil)
	m.CloseSelf()

	err := m.Finalize()
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
}

func TestParallelBarrierUnblocksAfterFinalize(t *testing.T) {
	m := NewMaster(0, nil)
	c := m.NewClient()

	done := make(chan struct{})
	go func() {
		c.Barrier()
		close(done)
	}()

	c.Close(nil)
	m.CloseSelf()
	require.NoError(t, m.Finalize())
	<-done
}
