package domain

import (
	"math"
	"slices"
)

// Outcome classifies what happened when a ContestCounty was scored.
type Outcome string

const (
	// OutcomeIneligible means the unit had too few precincts or too little
	// turnout and was not scored at all.
	OutcomeIneligible Outcome = "ineligible"

	// OutcomeBelowThreshold means the unit was scored but its score did not
	// exceed the policy threshold.
	OutcomeBelowThreshold Outcome = "below_threshold"

	// OutcomeFlagged means the score exceeded the threshold and the unit
	// enters the ranked report.
	OutcomeFlagged Outcome = "flagged"
)

// Anomaly is the scoring result for one ContestCounty. It is computed once by
// Score and is immutable thereafter.
type Anomaly struct {
	// Key identifies the scored ContestCounty.
	Key ContestCounty `json:"key"`

	// Choices lists the scored choices in alphabetical order.
	Choices []string `json:"choices"`

	// Reference is the per-choice median share inside the window.
	Reference map[string]float64 `json:"reference"`

	// Final is the per-choice share once every precinct has reported.
	Final map[string]float64 `json:"final"`

	// Deltas is the signed final minus reference share per choice.
	Deltas map[string]float64 `json:"deltas"`

	// Score is the unrounded sum of absolute deltas. All comparisons use it.
	Score float64 `json:"score"`

	// Rounded is Score rounded to the policy precision, for reporting only.
	Rounded float64 `json:"rounded_score"`

	// Window is the reference window that produced Reference.
	Window Window `json:"window"`

	// TotalVotes is the final cross-choice vote total.
	TotalVotes int64 `json:"total_votes"`

	// PrecinctCount is the number of precincts tallied.
	PrecinctCount int `json:"precinct_count"`
}

// Largest returns the choice with the largest-magnitude delta and that
// delta. Ties go to the alphabetically first choice.
func (a Anomaly) Largest() (string, float64) {
	var (
		choice string
		delta  float64
	)
	for i, c := range a.Choices {
		d := a.Deltas[c]
		if i == 0 || math.Abs(d) > math.Abs(delta) {
			choice, delta = c, d
		}
	}
	return choice, delta
}

// Median returns the upper median of values: the element at index
// floor(len/2) after an ascending sort. Even-length inputs are not
// averaged. values is not modified. Median of an empty slice is 0.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

// Score computes the anomaly for a tally under policy p.
//
// Units failing the eligibility guards return OutcomeIneligible and a zero
// Anomaly. Otherwise the reference window is carved between WindowStart and
// WindowEnd of the final total, each choice's reference share is the upper
// median of its shares inside [lo, hi), and the score is the sum of absolute
// differences between final and reference shares. The returned Anomaly is
// fully populated for both OutcomeBelowThreshold and OutcomeFlagged so that
// below-threshold deltas remain available for lookup.
//
// When the window collapses (lo == hi) it is widened to the single
// position at lo so the median is always defined.
func Score(t *Tally, p Policy) (Anomaly, Outcome) {
	n := t.Len()
	total := t.TotalVotes()
	if !p.Eligible(n, total) {
		return Anomaly{}, OutcomeIneligible
	}

	loTarget, hiTarget := p.windowTargets(total)
	w := Window{Lo: t.FindIndex(loTarget), Hi: t.FindIndex(hiTarget)}
	if w.Hi <= w.Lo {
		w.Hi = w.Lo + 1
	}

	a := Anomaly{
		Key:           t.Key,
		Choices:       slices.Clone(t.Choices),
		Reference:     make(map[string]float64, len(t.Choices)),
		Final:         make(map[string]float64, len(t.Choices)),
		Deltas:        make(map[string]float64, len(t.Choices)),
		Window:        w,
		TotalVotes:    total,
		PrecinctCount: n,
	}
	for _, c := range t.Choices {
		pct := t.Percentages[c]
		ref := Median(pct[w.Lo:w.Hi])
		final := pct[n-1]
		a.Reference[c] = ref
		a.Final[c] = final
		a.Deltas[c] = final - ref
		a.Score += math.Abs(final - ref)
	}
	a.Rounded = p.Round(a.Score)

	if !p.Flags(a.Score) {
		return a, OutcomeBelowThreshold
	}
	return a, OutcomeFlagged
}
