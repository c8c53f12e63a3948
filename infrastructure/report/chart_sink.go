package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

var _ ports.ReportSink = (*ChartSink)(nil)

// hiddenBelow is the absolute delta under which a series is left out of
// the chart legend.
const hiddenBelow = 0.01

// Chart is the data behind one unit's vote-share chart: the share of each
// choice against the cumulative vote tally. Rendering is left to external
// tools.
type Chart struct {
	Title  string        `json:"title"`
	XLabel string        `json:"x_label"`
	YLabel string        `json:"y_label"`
	Score  float64       `json:"score"`
	X      []int64       `json:"x"`
	Series []ChartSeries `json:"series"`
}

// ChartSeries is one choice's line.
type ChartSeries struct {
	Choice string `json:"choice"`
	// Label is the legend entry, e.g. "Clinton +4%".
	Label string `json:"label"`
	// Hidden marks series whose delta is too small to list in the legend.
	Hidden bool      `json:"hidden"`
	Delta  float64   `json:"delta"`
	Y      []float64 `json:"y"`
}

// BuildChart assembles chart data from a tally and its anomaly.
func BuildChart(t *domain.Tally, a domain.Anomaly) Chart {
	c := Chart{
		Title:  t.Key.Contest + " " + t.Key.County,
		XLabel: "cumulative vote tally",
		YLabel: "% of vote",
		Score:  a.Rounded,
		X:      append([]int64(nil), t.Totals...),
		Series: make([]ChartSeries, 0, len(t.Choices)),
	}
	for _, choice := range t.Choices {
		delta := a.Deltas[choice]
		pct := t.Percentages[choice]
		y := make([]float64, len(pct))
		for i, p := range pct {
			y[i] = 100 * p
		}
		c.Series = append(c.Series, ChartSeries{
			Choice: choice,
			Label:  fmt.Sprintf("%s %+d%%", ShortName(choice), PercentPoints(delta)),
			Hidden: math.Abs(delta) < hiddenBelow,
			Delta:  delta,
			Y:      y,
		})
	}
	return c
}

// ChartSink writes one JSON chart file per top-ranked unit into a
// directory.
type ChartSink struct {
	dir    string
	logger logrus.FieldLogger
}

// NewChartSink writes into dir, creating it on first use.
func NewChartSink(dir string, logger logrus.FieldLogger) *ChartSink {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &ChartSink{dir: dir, logger: logger.WithField("sink", "chart")}
}

// Name implements ports.ReportSink.
func (s *ChartSink) Name() string { return "chart" }

// Write implements ports.ReportSink.
func (s *ChartSink) Write(ctx context.Context, report *domain.Report) error {
	top := report.Top()
	if len(top) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}

	used := make(map[string]domain.ContestCounty, len(top))
	for _, a := range top {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := report.Tallies[a.Key]
		if !ok {
			return fmt.Errorf("no tally for %s", a.Key)
		}

		data, err := json.MarshalIndent(BuildChart(t, a), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode chart for %s: %w", a.Key, err)
		}
		name := ChartFileName(a.Key)
		if prev, taken := used[name]; taken {
			unique := uniqueChartName(used, name)
			s.logger.WithFields(logrus.Fields{
				"unit":     a.Key.String(),
				"conflict": prev.String(),
				"file":     unique,
			}).Warn("Chart file name already used, writing under a suffixed name")
			name = unique
		}
		used[name] = a.Key

		path := filepath.Join(s.dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write chart for %s: %w", a.Key, err)
		}
		s.logger.WithField("path", path).Debug("Wrote chart")
	}
	return nil
}

// uniqueChartName appends "-2", "-3", ... before the extension until the
// name is not in used.
func uniqueChartName(used map[string]domain.ContestCounty, name string) string {
	base := strings.TrimSuffix(name, ".json")
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d.json", base, n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}
