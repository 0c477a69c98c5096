package schedule

import "sort"

// Merge unions the given intervals into an ordered, non-overlapping,
// non-touching list. The input is not modified.
//
// Sweep: sort by start, keep a running (start, end) pair, extend the run
// while the next interval starts at or before the current end (touching
// intervals join), otherwise emit and restart.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.After(cur.End) {
			if next.End.After(cur.End) {
				cur.End = next.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}

// Gaps returns the maximal sub-ranges of bounds not covered by busy,
// in chronological order. busy must be the output of Merge (ordered,
// disjoint) and already clipped to bounds. Zero-length gaps are never
// emitted.
func Gaps(busy []Interval, bounds Interval) []Interval {
	if len(busy) == 0 {
		if bounds.Start.Before(bounds.End) {
			return []Interval{bounds}
		}
		return nil
	}

	var free []Interval
	if bounds.Start.Before(busy[0].Start) {
		free = append(free, Interval{Start: bounds.Start, End: busy[0].Start})
	}
	for i := 0; i < len(busy)-1; i++ {
		if busy[i].End.Before(busy[i+1].Start) {
			free = append(free, Interval{Start: busy[i].End, End: busy[i+1].Start})
		}
	}
	if last := busy[len(busy)-1].End; last.Before(bounds.End) {
		free = append(free, Interval{Start: last, End: bounds.End})
	}
	return free
}
