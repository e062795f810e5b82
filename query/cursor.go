package query

import (
	"fmt"

	"ridx/region"
)

// QueryPartitionResult is one partition's answer to a query (§4.8).
type QueryPartitionResult struct {
	PartitionID  int
	DomainOffset uint64
	DomainLength uint64
	Result       region.Region
	Stats        Stat
}

// Cursor streams one QueryPartitionResult at a time over a requested
// domain range (§4.8 "Cursor"). Before yielding anything it verifies
// that every variable a query touches agrees on partition count and
// per-partition domain mapping; forward-scan-with-resume-state, the
// shape of a resumable iterator throughout this codebase.
type Cursor struct {
	sources      Sources
	query        Query
	policy       Policy
	numPartition int
	domainLo     uint64
	domainHi     uint64
	next         int
}

// NewCursor validates sources against q and returns a Cursor over the
// domain-ID range [domainLo, domainHi). A domainHi of 0 means "no upper
// bound" (the full domain as determined by the sources' own partition
// layout).
func NewCursor(sources Sources, q Query, policy Policy, domainLo, domainHi uint64) (*Cursor, error) {
	vars := q.Vars()
	if len(vars) == 0 {
		return nil, fmt.Errorf("query: new cursor: query references no variables")
	}
	first, ok := sources[vars[0]]
	if !ok {
		return nil, fmt.Errorf("query: new cursor: no source registered for variable %q", vars[0])
	}
	numPartitions := first.NumPartitions()

	for _, v := range vars[1:] {
		r, ok := sources[v]
		if !ok {
			return nil, fmt.Errorf("query: new cursor: no source registered for variable %q", v)
		}
		if r.NumPartitions() != numPartitions {
			return nil, fmt.Errorf("query: new cursor: variable %q has %d partitions, variable %q has %d", v, r.NumPartitions(), vars[0], numPartitions)
		}
	}
	for i := 0; i < numPartitions; i++ {
		refMeta, err := first.Metadata(i)
		if err != nil {
			return nil, fmt.Errorf("query: new cursor: %w", err)
		}
		for _, v := range vars[1:] {
			meta, err := sources[v].Metadata(i)
			if err != nil {
				return nil, fmt.Errorf("query: new cursor: %w", err)
			}
			if meta.DomainOffset != refMeta.DomainOffset || meta.DomainLength != refMeta.DomainLength {
				return nil, fmt.Errorf("query: new cursor: partition %d domain mismatch: variable %q is [%d,%d), variable %q is [%d,%d)",
					i, v, meta.DomainOffset, meta.DomainOffset+meta.DomainLength, vars[0], refMeta.DomainOffset, refMeta.DomainOffset+refMeta.DomainLength)
			}
		}
	}

	return &Cursor{
		sources:      sources,
		query:        q,
		policy:       policy,
		numPartition: numPartitions,
		domainLo:     domainLo,
		domainHi:     domainHi,
	}, nil
}

// Next advances the cursor and returns the next partition's result, or
// ok == false once the requested domain range is exhausted.
func (c *Cursor) Next() (result *QueryPartitionResult, ok bool, err error) {
	first := c.sources[c.query.Vars()[0]]
	for c.next < c.numPartition {
		i := c.next
		c.next++
		meta, err := first.Metadata(i)
		if err != nil {
			return nil, false, fmt.Errorf("query: cursor next: %w", err)
		}
		end := meta.DomainOffset + meta.DomainLength
		if end <= c.domainLo {
			continue
		}
		if c.domainHi != 0 && meta.DomainOffset >= c.domainHi {
			continue
		}
		r, stat, err := Evaluate(c.sources, i, c.query, c.policy)
		if err != nil {
			return nil, false, fmt.Errorf("query: cursor next: partition %d: %w", i, err)
		}
		return &QueryPartitionResult{
			PartitionID:  i,
			DomainOffset: meta.DomainOffset,
			DomainLength: meta.DomainLength,
			Result:       r,
			Stats:        stat,
		}, true, nil
	}
	return nil, false, nil
}
