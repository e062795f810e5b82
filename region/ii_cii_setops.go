package region

import "sort"

// iiUnion, iiIntersect and iiDifference implement the II encoding's
// setops as a linear merge of the two sorted RID vectors (§4.1), rather
// than falling back to the generic Bitmap conversion used for
// mixed-type operand pairs.
func iiUnion(a, b *II) *II {
	out := &II{domainSize: a.domainSize}
	i, j := 0, 0
	for i < len(a.rids) && j < len(b.rids) {
		switch {
		case a.rids[i] < b.rids[j]:
			out.rids = append(out.rids, a.rids[i])
			i++
		case a.rids[i] > b.rids[j]:
			out.rids = append(out.rids, b.rids[j])
			j++
		default:
			out.rids = append(out.rids, a.rids[i])
			i++
			j++
		}
	}
	out.rids = append(out.rids, a.rids[i:]...)
	out.rids = append(out.rids, b.rids[j:]...)
	return out
}

func iiIntersect(a, b *II) *II {
	out := &II{domainSize: a.domainSize}
	i, j := 0, 0
	for i < len(a.rids) && j < len(b.rids) {
		switch {
		case a.rids[i] < b.rids[j]:
			i++
		case a.rids[i] > b.rids[j]:
			j++
		default:
			out.rids = append(out.rids, a.rids[i])
			i++
			j++
		}
	}
	return out
}

func iiDifference(a, b *II) *II {
	out := &II{domainSize: a.domainSize}
	i, j := 0, 0
	for i < len(a.rids) {
		for j < len(b.rids) && b.rids[j] < a.rids[i] {
			j++
		}
		if j < len(b.rids) && b.rids[j] == a.rids[i] {
			i++
			continue
		}
		out.rids = append(out.rids, a.rids[i])
		i++
	}
	return out
}

// ciiUnion, ciiIntersect and ciiDifference operate on the run vectors
// directly, coalescing adjacent/overlapping runs as they are produced.
func ciiUnion(a, b *CII) *CII {
	merged := append(append([]run{}, a.runs...), b.runs...)
	sortRuns(merged)
	out := &CII{domainSize: a.domainSize}
	for _, r := range merged {
		n := len(out.runs)
		if n > 0 && r.Start <= out.runs[n-1].Start+out.runs[n-1].Length {
			end := r.Start + r.Length
			curEnd := out.runs[n-1].Start + out.runs[n-1].Length
			if end > curEnd {
				out.runs[n-1].Length = end - out.runs[n-1].Start
			}
			continue
		}
		out.runs = append(out.runs, r)
	}
	return out
}

func ciiIntersect(a, b *CII) *CII {
	out := &CII{domainSize: a.domainSize}
	i, j := 0, 0
	for i < len(a.runs) && j < len(b.runs) {
		aStart, aEnd := a.runs[i].Start, a.runs[i].Start+a.runs[i].Length
		bStart, bEnd := b.runs[j].Start, b.runs[j].Start+b.runs[j].Length
		start := maxU32(aStart, bStart)
		end := minU32(aEnd, bEnd)
		if start < end {
			out.runs = append(out.runs, run{Start: start, Length: end - start})
		}
		if aEnd < bEnd {
			i++
		} else {
			j++
		}
	}
	return out
}

func ciiDifference(a, b *CII) *CII {
	out := &CII{domainSize: a.domainSize}
	j := 0
	for _, ar := range a.runs {
		start := ar.Start
		end := ar.Start + ar.Length
		for start < end {
			for j < len(b.runs) && b.runs[j].Start+b.runs[j].Length <= start {
				j++
			}
			if j >= len(b.runs) || b.runs[j].Start >= end {
				out.runs = append(out.runs, run{Start: start, Length: end - start})
				break
			}
			bStart := b.runs[j].Start
			if bStart > start {
				out.runs = append(out.runs, run{Start: start, Length: bStart - start})
			}
			bEnd := b.runs[j].Start + b.runs[j].Length
			if bEnd >= end {
				start = end
				break
			}
			start = bEnd
		}
	}
	return out
}

func sortRuns(runs []run) {
	sort.Slice(runs, func(i, j int) bool { return runs[i].Start < runs[j].Start })
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
