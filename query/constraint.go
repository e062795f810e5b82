package query

import (
	"fmt"

	"ridx/metrics"
	"ridx/partition"
	"ridx/region"
	"ridx/univ"
)

// EvaluateConstraint answers one variable's "[lb, ub)" constraint
// against a single partition (§4.8 steps 1-4).
func EvaluateConstraint(reader *partition.Reader, partitionID int, lb, ub univ.Value, policy Policy) (region.Region, Stat, error) {
	meta, err := reader.Metadata(partitionID)
	if err != nil {
		return nil, Stat{}, fmt.Errorf("query: evaluate constraint: %w", err)
	}
	lbBin, ubBin, err := meta.Binning.BinRange(lb, ub)
	if err != nil {
		return nil, Stat{}, fmt.Errorf("query: evaluate constraint: bin range: %w", err)
	}
	k, err := meta.Binning.NumBins()
	if err != nil {
		return nil, Stat{}, fmt.Errorf("query: evaluate constraint: %w", err)
	}

	if lbBin >= ubBin {
		r, err := region.MakeUniform(meta.RegionType, int(meta.DomainLength), false)
		return r, Stat{}, err
	}
	if lbBin == 0 && ubBin == k {
		r, err := region.MakeUniform(meta.RegionType, int(meta.DomainLength), true)
		return r, Stat{}, err
	}

	direct, err := meta.Encoding.RegionMath(k, lbBin, ubBin, false)
	if err != nil {
		return nil, Stat{}, fmt.Errorf("query: evaluate constraint: direct plan: %w", err)
	}
	complement, err := meta.Encoding.RegionMath(k, lbBin, ubBin, true)
	if err != nil {
		return nil, Stat{}, fmt.Errorf("query: evaluate constraint: complement plan: %w", err)
	}
	chosen, planName, err := choosePlan(reader, partitionID, direct, complement, policy)
	if err != nil {
		return nil, Stat{}, fmt.Errorf("query: evaluate constraint: %w", err)
	}
	metrics.ConstraintPlanChosen.WithLabelValues(meta.Encoding.Name(), planName).Inc()

	ids := chosen.RegionIDs()
	regions, err := reader.ReadRegions(partitionID, ids)
	if err != nil {
		return nil, Stat{}, fmt.Errorf("query: evaluate constraint: read regions: %w", err)
	}
	result, err := chosen.Eval(regions)
	if err != nil {
		return nil, Stat{}, fmt.Errorf("query: evaluate constraint: eval: %w", err)
	}

	stat := Stat{RegionsRead: len(ids), CoalescedReads: partition.CoalescedReadCount(ids)}
	for _, id := range ids {
		sz, err := reader.RegionSize(partitionID, id)
		if err != nil {
			return nil, Stat{}, fmt.Errorf("query: evaluate constraint: %w", err)
		}
		stat.BytesRead += int64(sz)
	}
	metrics.RegionsRead.WithLabelValues(meta.RegionType.String()).Add(float64(len(ids)))
	return result, stat, nil
}
