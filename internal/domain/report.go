package domain

import (
	"time"
)

// Report is the complete result of one analysis run. It is the handoff to
// every ReportSink and is read-only once built.
type Report struct {
	// RunID uniquely identifies the run that produced this report.
	RunID string `json:"run_id"`

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// Policy is the policy the run scored with.
	Policy Policy `json:"policy"`

	// Ranked holds every flagged anomaly, highest score first.
	Ranked []Anomaly `json:"ranked"`

	// Lookup holds every scored anomaly, flagged or not, keyed by unit.
	Lookup map[ContestCounty]Anomaly `json:"-"`

	// Tallies holds the cumulative series for the top Policy.ReportTop
	// ranked units; charting reads only these.
	Tallies map[ContestCounty]*Tally `json:"-"`

	// Faults lists integrity errors that were tolerated in lenient mode.
	Faults []*IntegrityError `json:"-"`

	// Stats summarises how units were classified.
	Stats RunStats `json:"stats"`
}

// Top returns the ranked anomalies handed to charting.
func (r *Report) Top() []Anomaly { return Top(r.Ranked, r.Policy.ReportTop) }

// RunStats counts records and unit outcomes for a run.
type RunStats struct {
	// Records is the number of vote records read from the source.
	Records int `json:"records"`

	// Units is the number of ContestCounties considered.
	Units int `json:"units"`

	// Ineligible, BelowThreshold and Flagged count scoring outcomes.
	Ineligible     int `json:"ineligible"`
	BelowThreshold int `json:"below_threshold"`
	Flagged        int `json:"flagged"`

	// Faults counts units dropped for integrity errors.
	Faults int `json:"faults"`

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`
}

// Record increments the counter for outcome.
func (s *RunStats) Record(outcome Outcome) {
	switch outcome {
	case OutcomeIneligible:
		s.Ineligible++
	case OutcomeBelowThreshold:
		s.BelowThreshold++
	case OutcomeFlagged:
		s.Flagged++
	}
}
