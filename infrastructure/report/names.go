// Package report provides ReportSink implementations: a ranked text
// summary and per-unit chart data.
package report

import (
	"math"
	"strings"

	"github.com/ahrav/go-tally/internal/domain"
)

// nobody is how the "No Preference" ballot choice is abbreviated.
const nobody = "Nobody"

// ShortName abbreviates a choice for summaries and chart legends: the last
// space-separated word, so "Hillary Clinton" becomes "Clinton".
func ShortName(choice string) string {
	if choice == "No Preference" {
		return nobody
	}
	choice = strings.TrimSpace(choice)
	if i := strings.LastIndexByte(choice, ' '); i >= 0 {
		return choice[i+1:]
	}
	return choice
}

// PercentPoints converts a share delta to whole percentage points, rounding
// half away from zero.
func PercentPoints(delta float64) int {
	return int(math.Round(delta * 100))
}

var chartNameReplacer = strings.NewReplacer(
	" ", "_",
	"(", "",
	")", "",
	"/", "_",
	"\\", "_",
)

// ChartFileName returns the base file name for a unit's chart data,
// "<contest>-<county>.json" with spaces replaced and parentheses dropped.
func ChartFileName(key domain.ContestCounty) string {
	return chartNameReplacer.Replace(key.Contest+"-"+key.County) + ".json"
}
