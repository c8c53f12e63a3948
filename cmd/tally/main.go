// Command tally ranks contest/county units whose final vote shares drift
// away from their early-reporting precincts.
//
// Usage:
//
//	tally [flags] <results.txt>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ahrav/go-tally/infrastructure/middleware"
	"github.com/ahrav/go-tally/infrastructure/report"
	"github.com/ahrav/go-tally/infrastructure/source"
	"github.com/ahrav/go-tally/internal/application"
	"github.com/ahrav/go-tally/internal/ports"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Environ()))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, environ []string) int {
	pf := createFlagSet(stderr)
	if err := pf.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := loadConfig(pf, environ)
	if err != nil {
		fmt.Fprintf(stderr, "tally: %v\n", err)
		return exitUsage
	}
	if cfg.Source.Path == "" {
		fmt.Fprintln(stderr, "tally: no results file given")
		pf.Usage()
		return exitUsage
	}

	logger := newLogger(cfg.Log, stderr)
	if err := analyze(ctx, cfg, stdout, logger); err != nil {
		logger.WithError(err).Error("Analysis failed")
		return exitError
	}
	return exitOK
}

func createFlagSet(stderr io.Writer) *pflag.FlagSet {
	pf := pflag.NewFlagSet("tally", pflag.ContinueOnError)
	pf.SetOutput(stderr)
	pf.Usage = func() {
		fmt.Fprintf(stderr, "Usage of tally:\ntally [flags] <results.txt>\n\n%s", pf.FlagUsagesWrapped(100))
	}

	pf.StringP("config", "c", "", "Use yaml configuration file")
	pf.String("store", "", "Where records are staged before analysis: sqlite or memory")
	pf.IntP("workers", "w", 0, "Units scored concurrently (0 means GOMAXPROCS)")
	pf.Bool("strict-integrity", true, "Fail the run on the first data-integrity fault")
	pf.Int("min-precincts", 0, "Skip units with this many precincts or fewer")
	pf.Int64("min-votes", 0, "Skip units with this many final votes or fewer")
	pf.Float64("window-start", 0, "Fraction of final turnout where the reference window starts")
	pf.Float64("window-end", 0, "Fraction of final turnout where the reference window ends")
	pf.Float64("threshold", 0, "Flag units whose score exceeds this value")
	pf.IntP("top", "n", 0, "Number of top-ranked units to chart")
	pf.String("chart-dir", "", "Write chart data for the top units into this directory")
	pf.Bool("json", false, "Print the ranked summary as JSON")
	pf.String("metrics-file", "", "Write run metrics in Prometheus text format to this file")
	pf.String("log-level", "", "Log level: trace, debug, info, warn or error")
	pf.String("log-format", "", "Log format: text or json")

	return pf
}

// loadConfig layers flags the user set over the configuration file and
// environment, then validates the result.
func loadConfig(pf *pflag.FlagSet, environ []string) (*application.Config, error) {
	loader, err := application.NewConfigLoader()
	if err != nil {
		return nil, err
	}
	loader.WithEnvironment(envMap(environ))

	path, _ := pf.GetString("config")
	cfg, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	if pf.NArg() > 0 {
		cfg.Source.Path = pf.Arg(0)
	}

	var errs []error
	set := func(name string, apply func() error) {
		if pf.Changed(name) {
			errs = append(errs, apply())
		}
	}
	set("store", func() (err error) { cfg.Source.Store, err = pf.GetString("store"); return })
	set("workers", func() (err error) { cfg.Run.Workers, err = pf.GetInt("workers"); return })
	set("strict-integrity", func() (err error) { cfg.Run.StrictIntegrity, err = pf.GetBool("strict-integrity"); return })
	set("min-precincts", func() (err error) { cfg.Policy.MinPrecincts, err = pf.GetInt("min-precincts"); return })
	set("min-votes", func() (err error) { cfg.Policy.MinTotalVotes, err = pf.GetInt64("min-votes"); return })
	set("window-start", func() (err error) { cfg.Policy.WindowStart, err = pf.GetFloat64("window-start"); return })
	set("window-end", func() (err error) { cfg.Policy.WindowEnd, err = pf.GetFloat64("window-end"); return })
	set("threshold", func() (err error) { cfg.Policy.ScoreThreshold, err = pf.GetFloat64("threshold"); return })
	set("top", func() (err error) { cfg.Policy.ReportTop, err = pf.GetInt("top"); return })
	set("chart-dir", func() (err error) { cfg.Report.ChartDir, err = pf.GetString("chart-dir"); return })
	set("json", func() (err error) { cfg.Report.SummaryJSON, err = pf.GetBool("json"); return })
	set("metrics-file", func() (err error) { cfg.Report.MetricsFile, err = pf.GetString("metrics-file"); return })
	set("log-level", func() (err error) { cfg.Log.Level, err = pf.GetString("log-level"); return })
	set("log-format", func() (err error) { cfg.Log.Format, err = pf.GetString("log-format"); return })
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := loader.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

func newLogger(cfg application.LogConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func analyze(ctx context.Context, cfg *application.Config, stdout io.Writer, logger logrus.FieldLogger) error {
	log := logger.WithField("component", "main")

	src, records, err := source.Open(ctx, cfg.Source.Path, cfg.Source.Store)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	defer src.Close()
	log.WithFields(logrus.Fields{
		"path":    cfg.Source.Path,
		"store":   cfg.Source.Store,
		"records": records,
	}).Info("Loaded results")

	metrics := middleware.NewPrometheusMetrics()
	sinks := []ports.ReportSink{
		middleware.NewTracedSink(report.NewTextSink(stdout, cfg.Report.SummaryJSON, logger), metrics),
	}
	if cfg.Report.ChartDir != "" {
		sinks = append(sinks, middleware.NewTracedSink(report.NewChartSink(cfg.Report.ChartDir, logger), metrics))
	}

	analyzer, err := application.NewAnalyzer(cfg, application.AnalyzerDeps{
		Source:  src,
		Sinks:   sinks,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	_, runErr := analyzer.Run(ctx)

	if cfg.Report.MetricsFile != "" {
		if err := middleware.WriteTextfile(cfg.Report.MetricsFile, metrics.Registry()); err != nil {
			log.WithError(err).Warn("Failed to write metrics file")
		}
	}
	return runErr
}
