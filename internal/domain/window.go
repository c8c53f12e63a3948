package domain

import "sort"

// Window is a half-open precinct-order range [Lo, Hi).
type Window struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// Len returns the number of positions in the window.
func (w Window) Len() int { return w.Hi - w.Lo }

// FindIndex returns the smallest index i such that totals[i] >= target.
//
// totals must be non-decreasing, which cumulative tallies guarantee. A target
// at or below totals[0] yields 0 and a target above the last total yields
// len(totals)-1, so the result is always a valid index into a non-empty
// slice. The search is a lower-bound binary search and never probes outside
// [0, len(totals)-1]. Targets are compared as floats so fractional
// thresholds such as T/20 are not truncated.
//
// FindIndex returns -1 when totals is empty.
func FindIndex(totals []int64, target float64) int {
	n := len(totals)
	if n == 0 {
		return -1
	}
	i := sort.Search(n, func(i int) bool {
		return float64(totals[i]) >= target
	})
	if i == n {
		return n - 1
	}
	return i
}
