package partition

import (
	"fmt"
	"sync"
)

// MemBacking is an in-memory Backing, growing as needed. It is the
// backing used by this package's own tests and by package query's
// fixture-building tests; a real deployment backs a partitioned index
// file with an *os.File instead.
type MemBacking struct {
	mu   sync.Mutex
	data []byte
}

// NewMemBacking returns an empty in-memory Backing.
func NewMemBacking() *MemBacking { return &MemBacking{} }

func (m *MemBacking) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off < 0 || int(off) > len(m.data) {
		return 0, errOutOfRange
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, errShortRead
	}
	return n, nil
}

func (m *MemBacking) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := int(off) + len(p)
	if end > len(m.data) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:end], p)
	return len(p), nil
}

// Len reports the current backing size in bytes.
func (m *MemBacking) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

var errOutOfRange = fmt.Errorf("partition: membacking: read offset out of range")
var errShortRead = fmt.Errorf("partition: membacking: short read")
