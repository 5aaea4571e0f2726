package ledger

import "sort"

// NormalizeRanges sorts ranges by start line and coalesces overlapping or
// adjacent ranges into a minimal set. Invalid ranges (start < 1 or end
// before start) are dropped. The input slice is not modified.
func NormalizeRanges(ranges []LineRange) []LineRange {
	valid := make([]LineRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Start >= 1 && r.End >= r.Start {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End < valid[j].End
	})

	out := []LineRange{valid[0]}
	for _, r := range valid[1:] {
		last := &out[len(out)-1]
		// Adjacent ranges (e.g. 1-3 and 4-6) coalesce too.
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// MergeRanges returns the normalized union of two range sets.
func MergeRanges(a, b []LineRange) []LineRange {
	combined := make([]LineRange, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	return NormalizeRanges(combined)
}

// RangesFromLines converts a set of 1-based line numbers into coalesced
// ranges. Duplicate and out-of-order lines are fine.
func RangesFromLines(lines []int) []LineRange {
	ranges := make([]LineRange, 0, len(lines))
	for _, n := range lines {
		ranges = append(ranges, LineRange{Start: n, End: n})
	}
	return NormalizeRanges(ranges)
}

// TotalLines returns the number of lines covered by a normalized range set.
func TotalLines(ranges []LineRange) int {
	total := 0
	for _, r := range ranges {
		total += r.Len()
	}
	return total
}

func rangesEqual(a, b []LineRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
