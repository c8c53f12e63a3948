package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tally/internal/domain"
)

var wakePres = domain.ContestCounty{Contest: "PRESIDENTIAL PREFERENCE (DEM)", County: "WAKE"}

// lateSwingReport scores a five-precinct unit whose final share moves 26
// points away from its early median.
func lateSwingReport(t *testing.T) *domain.Report {
	t.Helper()
	var records []domain.VoteRecord
	for _, p := range []struct {
		name   string
		hc, bs int64
	}{{"p1", 6, 4}, {"p2", 12, 8}, {"p3", 10, 20}, {"p4", 20, 20}, {"p5", 20, 80}} {
		records = append(records,
			domain.VoteRecord{Contest: wakePres.Contest, County: wakePres.County, Precinct: p.name, Choice: "Hillary Clinton", Votes: p.hc},
			domain.VoteRecord{Contest: wakePres.Contest, County: wakePres.County, Precinct: p.name, Choice: "Bernie Sanders", Votes: p.bs},
		)
	}
	tally, err := domain.Aggregate(wakePres, records)
	require.NoError(t, err)

	policy := domain.DefaultPolicy()
	policy.MinPrecincts, policy.MinTotalVotes = 1, 1
	a, outcome := domain.Score(tally, policy)
	require.Equal(t, domain.OutcomeFlagged, outcome)

	return &domain.Report{
		RunID:   "run-1",
		Policy:  policy,
		Ranked:  []domain.Anomaly{a},
		Lookup:  map[domain.ContestCounty]domain.Anomaly{wakePres: a},
		Tallies: map[domain.ContestCounty]*domain.Tally{wakePres: tally},
		Stats:   domain.RunStats{Units: 1, Flagged: 1},
	}
}

func TestTextSink(t *testing.T) {
	report := lateSwingReport(t)

	var buf bytes.Buffer
	sink := NewTextSink(&buf, false, nil)
	assert.Equal(t, "text", sink.Name())
	require.NoError(t, sink.Write(context.Background(), report))

	// Sanders gained 26 points over the early median.
	assert.Equal(t, "PRESIDENTIAL PREFERENCE (DEM) / WAKE Δ0.520 Sanders +26 (200 votes)\n", buf.String())
}

func TestTextSink_JSON(t *testing.T) {
	report := lateSwingReport(t)

	var buf bytes.Buffer
	require.NoError(t, NewTextSink(&buf, true, nil).Write(context.Background(), report))

	var doc summaryDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.RunID)
	require.Len(t, doc.Ranked, 1)
	assert.Equal(t, "Bernie Sanders", doc.Ranked[0].Choice)
	assert.Equal(t, 26, doc.Ranked[0].DeltaPoints)
	assert.Equal(t, 0.52, doc.Ranked[0].Score)
	assert.Equal(t, 5, doc.Ranked[0].Precincts)
}

func TestTextSink_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextSink(&buf, false, nil).Write(context.Background(), &domain.Report{}))
	assert.Empty(t, buf.String())
}

func TestBuildChart(t *testing.T) {
	report := lateSwingReport(t)
	chart := BuildChart(report.Tallies[wakePres], report.Ranked[0])

	assert.Equal(t, "PRESIDENTIAL PREFERENCE (DEM) WAKE", chart.Title)
	assert.Equal(t, []int64{10, 30, 60, 100, 200}, chart.X)
	require.Len(t, chart.Series, 2)

	bs := chart.Series[0]
	assert.Equal(t, "Bernie Sanders", bs.Choice)
	assert.Equal(t, "Sanders +26%", bs.Label)
	assert.False(t, bs.Hidden)
	assert.InDelta(t, 40.0, bs.Y[0], 1e-9)
	assert.InDelta(t, 66.0, bs.Y[4], 1e-9)

	assert.Equal(t, "Clinton -26%", chart.Series[1].Label)
}

func TestBuildChart_HidesSmallDeltas(t *testing.T) {
	tally := &domain.Tally{
		Key:         wakePres,
		Choices:     []string{"A", "B"},
		Percentages: map[string][]float64{"A": {0.5}, "B": {0.5}},
		Totals:      []int64{10},
	}
	a := domain.Anomaly{Deltas: map[string]float64{"A": 0.009, "B": -0.01}}

	chart := BuildChart(tally, a)
	assert.True(t, chart.Series[0].Hidden)
	assert.False(t, chart.Series[1].Hidden)
}

func TestChartSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	report := lateSwingReport(t)

	sink := NewChartSink(dir, nil)
	assert.Equal(t, "chart", sink.Name())
	require.NoError(t, sink.Write(context.Background(), report))

	data, err := os.ReadFile(filepath.Join(dir, "PRESIDENTIAL_PREFERENCE_DEM-WAKE.json"))
	require.NoError(t, err)

	var chart Chart
	require.NoError(t, json.Unmarshal(data, &chart))
	assert.Equal(t, []int64{10, 30, 60, 100, 200}, chart.X)
	assert.Len(t, chart.Series, 2)
}

func TestChartSink_RespectsReportTop(t *testing.T) {
	dir := t.TempDir()
	report := lateSwingReport(t)
	report.Policy.ReportTop = 0

	require.NoError(t, NewChartSink(dir, nil).Write(context.Background(), report))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChartSink_DistinctFilesForCollidingNames(t *testing.T) {
	dir := t.TempDir()
	base := lateSwingReport(t)
	a := base.Ranked[0]
	tally := base.Tallies[wakePres]

	spaced := domain.ContestCounty{Contest: "A B", County: "X"}
	underscored := domain.ContestCounty{Contest: "A_B", County: "X"}
	third := domain.ContestCounty{Contest: "A(B", County: "X"}
	require.Equal(t, ChartFileName(spaced), ChartFileName(underscored))

	report := &domain.Report{Policy: base.Policy, Tallies: map[domain.ContestCounty]*domain.Tally{}}
	for _, key := range []domain.ContestCounty{spaced, underscored, third} {
		ka := a
		ka.Key = key
		report.Ranked = append(report.Ranked, ka)
		report.Tallies[key] = tally
	}

	require.NoError(t, NewChartSink(dir, nil).Write(context.Background(), report))

	var names []string
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"A_B-X.json", "A_B-X-2.json", "AB-X.json"}, names)
}

func TestUniqueChartName(t *testing.T) {
	used := map[string]domain.ContestCounty{
		"A_B-X.json":   {},
		"A_B-X-2.json": {},
	}
	assert.Equal(t, "A_B-X-3.json", uniqueChartName(used, "A_B-X.json"))
}

func TestChartSink_MissingTally(t *testing.T) {
	report := lateSwingReport(t)
	report.Tallies = nil

	err := NewChartSink(t.TempDir(), nil).Write(context.Background(), report)
	assert.ErrorContains(t, err, "no tally")
}
