package query

import (
	"fmt"

	"ridx/encoding"
	"ridx/partition"
)

// Policy selects how a constraint's direct-vs-complement region-math
// plan is chosen (§4.8 step 3).
type Policy int

const (
	// Auto picks whichever plan has the smaller estimated cost.
	Auto Policy = iota
	// Always forces the prefer_complement plan regardless of cost.
	Always
	// Never forces the direct plan regardless of cost.
	Never
)

// seekPenalty is the fixed per-coalesced-read cost added to a plan's
// estimated byte cost (§4.8 step 3: "a fixed per-coalesced-read seek
// penalty"). It is not tuned against any real storage medium; it simply
// needs to be large enough that a plan touching one extra coalesced
// read is non-trivially worse than one reading a few hundred more bytes
// from an already-open run.
const seekPenalty int64 = 4096

// estimateCost sums the encoded byte size of every region an expression
// needs, plus the seek penalty per coalesced read its region IDs would
// take to fetch (§4.8 step 3).
func estimateCost(reader *partition.Reader, partitionID int, expr encoding.Expression) (int64, error) {
	ids := expr.RegionIDs()
	var total int64
	for _, id := range ids {
		sz, err := reader.RegionSize(partitionID, id)
		if err != nil {
			return 0, fmt.Errorf("query: estimate cost: %w", err)
		}
		total += int64(sz)
	}
	total += int64(partition.CoalescedReadCount(ids)) * seekPenalty
	return total, nil
}

// choosePlan picks between a constraint's direct and prefer_complement
// region-math plans per the given policy (§4.8 step 3), also reporting
// which one it picked ("direct" or "complement") for metrics.
func choosePlan(reader *partition.Reader, partitionID int, direct, complement encoding.Expression, policy Policy) (encoding.Expression, string, error) {
	switch policy {
	case Always:
		return complement, "complement", nil
	case Never:
		return direct, "direct", nil
	case Auto:
		directCost, err := estimateCost(reader, partitionID, direct)
		if err != nil {
			return nil, "", err
		}
		complementCost, err := estimateCost(reader, partitionID, complement)
		if err != nil {
			return nil, "", err
		}
		if complementCost < directCost {
			return complement, "complement", nil
		}
		return direct, "direct", nil
	default:
		return nil, "", fmt.Errorf("query: unknown policy %d", policy)
	}
}
