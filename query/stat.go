// Package query implements the per-partition query engine (§4.8): a
// postfix expression of named-variable constraint terms combined by the
// region-algebra operators, evaluated with a cost-based direct-vs-
// complement plan choice per constraint, and a cursor streaming one
// QueryPartitionResult per partition.
package query

// CombineOp names one of the ways two Stat values accumulate, the
// CRTP-style combine(other, op) pattern from original_source's io
// statistics accounting (§9/§12), reused here for per-partition query
// bookkeeping rather than a standalone metrics subsystem.
type CombineOp int

const (
	CombineAdd CombineOp = iota
	CombineSub
	CombineSet
	CombineClear
)

// Stat accumulates the bookkeeping a constraint evaluation or a full
// query evaluation produces: bytes actually read off the backing store,
// how many stored regions were fetched, and how many coalesced reads
// (§4.6) those fetches took.
type Stat struct {
	BytesRead      int64
	RegionsRead    int
	CoalescedReads int
}

// Combine folds other into s according to op.
func (s *Stat) Combine(other Stat, op CombineOp) {
	switch op {
	case CombineAdd:
		s.BytesRead += other.BytesRead
		s.RegionsRead += other.RegionsRead
		s.CoalescedReads += other.CoalescedReads
	case CombineSub:
		s.BytesRead -= other.BytesRead
		s.RegionsRead -= other.RegionsRead
		s.CoalescedReads -= other.CoalescedReads
	case CombineSet:
		*s = other
	case CombineClear:
		*s = Stat{}
	}
}
