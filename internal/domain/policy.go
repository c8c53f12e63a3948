package domain

import (
	"fmt"
	"math"
)

// Default policy values. They reproduce the reference heuristic exactly.
const (
	DefaultMinPrecincts   = 15
	DefaultMinTotalVotes  = 1000
	DefaultWindowStart    = 0.05
	DefaultWindowEnd      = 0.20
	DefaultScoreThreshold = 0.04
	DefaultScorePrecision = 3
	DefaultReportTop      = 25
)

// Policy holds the tunable constants of the anomaly heuristic.
// A zero Policy is not valid; start from DefaultPolicy.
type Policy struct {
	// MinPrecincts is the exclusive lower bound on precinct count for a
	// ContestCounty to be scored.
	MinPrecincts int `json:"min_precincts"`

	// MinTotalVotes is the exclusive lower bound on final total votes.
	MinTotalVotes int64 `json:"min_total_votes"`

	// WindowStart and WindowEnd are the fractions of the final total that
	// bound the reference window.
	WindowStart float64 `json:"window_start"`
	WindowEnd   float64 `json:"window_end"`

	// ScoreThreshold is the exclusive lower bound for a score to be flagged.
	ScoreThreshold float64 `json:"score_threshold"`

	// ScorePrecision is the number of decimals reported scores are rounded to.
	ScorePrecision int `json:"score_precision"`

	// ReportTop is how many ranked anomalies are handed to charting.
	ReportTop int `json:"report_top"`
}

// DefaultPolicy returns the reference policy.
func DefaultPolicy() Policy {
	return Policy{
		MinPrecincts:   DefaultMinPrecincts,
		MinTotalVotes:  DefaultMinTotalVotes,
		WindowStart:    DefaultWindowStart,
		WindowEnd:      DefaultWindowEnd,
		ScoreThreshold: DefaultScoreThreshold,
		ScorePrecision: DefaultScorePrecision,
		ReportTop:      DefaultReportTop,
	}
}

// Validate checks the policy for internally inconsistent values.
func (p Policy) Validate() error {
	ve := NewValidationError("policy")
	if p.MinPrecincts < 0 {
		ve.AddError("min_precincts must be >= 0")
	}
	if p.MinTotalVotes < 0 {
		ve.AddError("min_total_votes must be >= 0")
	}
	if p.WindowStart <= 0 || p.WindowStart >= 1 {
		ve.AddError(fmt.Sprintf("window_start %v must be in (0, 1)", p.WindowStart))
	}
	if p.WindowEnd <= 0 || p.WindowEnd >= 1 {
		ve.AddError(fmt.Sprintf("window_end %v must be in (0, 1)", p.WindowEnd))
	}
	if p.WindowEnd <= p.WindowStart {
		ve.AddError("window_end must be greater than window_start")
	}
	if p.ScoreThreshold < 0 {
		ve.AddError("score_threshold must be >= 0")
	}
	if p.ScorePrecision < 0 || p.ScorePrecision > 12 {
		ve.AddError("score_precision must be in [0, 12]")
	}
	if p.ReportTop < 0 {
		ve.AddError("report_top must be >= 0")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// Eligible reports whether a ContestCounty with the given precinct count and
// final total is large enough to be scored.
func (p Policy) Eligible(precincts int, totalVotes int64) bool {
	return precincts > p.MinPrecincts && totalVotes > p.MinTotalVotes
}

// Flags reports whether an unrounded score exceeds the threshold.
// The comparison is strict: a score equal to the threshold is not flagged.
func (p Policy) Flags(score float64) bool { return score > p.ScoreThreshold }

// Round rounds a score to ScorePrecision decimals for reporting.
func (p Policy) Round(score float64) float64 {
	pow := math.Pow10(p.ScorePrecision)
	return math.Round(score*pow) / pow
}

// windowTargets returns the cumulative-vote targets bounding the reference
// window for a final total.
func (p Policy) windowTargets(total int64) (lo, hi float64) {
	t := float64(total)
	return windowTarget(t, p.WindowStart), windowTarget(t, p.WindowEnd)
}

// windowTarget returns total*frac. Fractions of the form 1/n divide by n
// instead, so 0.05 and 0.2 give exactly total/20 and total/5.
func windowTarget(total, frac float64) float64 {
	if n := 1 / frac; n == math.Trunc(n) {
		return total / n
	}
	return total * frac
}
