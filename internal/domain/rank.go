package domain

import (
	"cmp"
	"slices"
)

// Rank returns a copy of anomalies sorted by descending unrounded score.
// Equal scores are ordered by ContestCounty so the ranking is deterministic
// regardless of the order in which units were scored.
//
// Rank does not filter: callers pass only flagged anomalies.
func Rank(anomalies []Anomaly) []Anomaly {
	ranked := slices.Clone(anomalies)
	slices.SortStableFunc(ranked, func(a, b Anomaly) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return a.Key.Compare(b.Key)
	})
	return ranked
}

// Top returns the first n entries of a ranked slice, or all of them when
// fewer than n exist. A negative n yields an empty slice.
func Top(ranked []Anomaly, n int) []Anomaly {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}
