// Command generate_sample_results writes a synthetic precinct results file
// with a few injected late swings, for exercising tally end to end.
package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ahrav/go-tally/internal/testutils"
)

func main() {
	logger := logrus.New().WithField("component", "generate_sample_results")

	cfg := testutils.DefaultSampleConfig()
	var (
		outputPath = pflag.StringP("output", "o", "testdata/sample_results.txt", "Output file path")
		seed       = pflag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	pflag.IntVar(&cfg.SwingUnits, "swing-units", cfg.SwingUnits, "Number of contest/county units to swing")
	pflag.Float64Var(&cfg.Swing, "swing", cfg.Swing, "Share moved to the first choice in large precincts")
	pflag.IntVar(&cfg.MinPrecincts, "min-precincts", cfg.MinPrecincts, "Minimum precincts per county")
	pflag.IntVar(&cfg.MaxPrecincts, "max-precincts", cfg.MaxPrecincts, "Maximum precincts per county")
	pflag.Parse()

	results, err := testutils.GenerateSampleResults(cfg, *seed)
	if err != nil {
		logger.WithError(err).Fatal("Failed to generate results")
	}
	if err := testutils.SaveResults(*outputPath, results.Records); err != nil {
		logger.WithError(err).Fatal("Failed to save results")
	}

	fmt.Printf("Generated sample results:\n")
	fmt.Printf("- Path: %s\n", *outputPath)
	fmt.Printf("- Seed: %d\n", *seed)
	fmt.Printf("- Records: %d\n", len(results.Records))
	fmt.Printf("- Swung units:\n")
	for _, k := range results.Swung {
		fmt.Printf("    %s\n", k)
	}
}
