package report

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

var _ ports.ReportSink = (*TextSink)(nil)

// TextSink writes the ranked summary, one line per flagged unit:
//
//	PRESIDENT - DEM / WAKE Δ0.052 Sanders -3 (123456 votes)
//
// The choice shown is the one with the largest-magnitude delta. With JSON
// enabled the summary is written as a single JSON document instead.
type TextSink struct {
	out    io.Writer
	json   bool
	logger logrus.FieldLogger
}

// NewTextSink writes to out. A nil logger disables logging.
func NewTextSink(out io.Writer, asJSON bool, logger logrus.FieldLogger) *TextSink {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &TextSink{out: out, json: asJSON, logger: logger.WithField("sink", "text")}
}

// Name implements ports.ReportSink.
func (s *TextSink) Name() string { return "text" }

// Write implements ports.ReportSink.
func (s *TextSink) Write(ctx context.Context, report *domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.json {
		return s.writeJSON(report)
	}

	for _, a := range report.Ranked {
		if _, err := fmt.Fprintln(s.out, SummaryLine(a)); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	s.logger.WithField("lines", len(report.Ranked)).Debug("Wrote summary")
	return nil
}

// SummaryLine formats one ranked anomaly.
func SummaryLine(a domain.Anomaly) string {
	choice, delta := a.Largest()
	return fmt.Sprintf("%s Δ%.3f %s %+d (%d votes)",
		a.Key, a.Rounded, ShortName(choice), PercentPoints(delta), a.TotalVotes)
}

// summaryEntry is the JSON form of one ranked anomaly.
type summaryEntry struct {
	Contest     string             `json:"contest"`
	County      string             `json:"county"`
	Score       float64            `json:"score"`
	Choice      string             `json:"choice"`
	DeltaPoints int                `json:"delta_points"`
	TotalVotes  int64              `json:"total_votes"`
	Precincts   int                `json:"precincts"`
	Deltas      map[string]float64 `json:"deltas"`
}

type summaryDoc struct {
	RunID  string          `json:"run_id"`
	Stats  domain.RunStats `json:"stats"`
	Ranked []summaryEntry  `json:"ranked"`
	Faults []string        `json:"faults,omitempty"`
}

func (s *TextSink) writeJSON(report *domain.Report) error {
	doc := summaryDoc{
		RunID:  report.RunID,
		Stats:  report.Stats,
		Ranked: make([]summaryEntry, 0, len(report.Ranked)),
	}
	for _, a := range report.Ranked {
		choice, delta := a.Largest()
		doc.Ranked = append(doc.Ranked, summaryEntry{
			Contest:     a.Key.Contest,
			County:      a.Key.County,
			Score:       a.Rounded,
			Choice:      choice,
			DeltaPoints: PercentPoints(delta),
			TotalVotes:  a.TotalVotes,
			Precincts:   a.PrecinctCount,
			Deltas:      a.Deltas,
		})
	}
	for _, f := range report.Faults {
		doc.Faults = append(doc.Faults, f.Error())
	}

	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}
