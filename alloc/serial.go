// Package alloc implements the partition allocator (§4.7): a serial
// (single-writer) backend and a parallel (master/client) backend whose
// "processes" are goroutines exchanging messages over channels, the
// language-neutral stand-in for MPI ranks called for in §9/§13.
package alloc

import (
	"fmt"
	"sync"
)

// Serial is the single-writer allocator: the next partition always
// takes the current end-of-partition-segment offset (§4.7).
type Serial struct {
	mu   sync.Mutex
	next int64
}

// NewSerial constructs a Serial allocator whose first allocation starts
// at start (the caller passes the partitioned index file's header size).
func NewSerial(start int64) *Serial {
	return &Serial{next: start}
}

// Allocate reserves size bytes and returns their starting offset.
func (s *Serial) Allocate(size int64) (int64, error) {
	if size < 0 {
		return 0, fmt.Errorf("alloc: negative allocation size %d", size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	offset := s.next
	s.next += size
	return offset, nil
}

// End reports the current end-of-segment offset (the footer's eventual
// starting offset, if no more allocations occur).
func (s *Serial) End() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
