package application

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

// AnalyzerDeps holds the collaborators an Analyzer needs. Source is
// required; the rest are optional.
type AnalyzerDeps struct {
	Source  ports.VoteRecordSource
	Sinks   []ports.ReportSink
	Logger  logrus.FieldLogger
	Metrics ports.MetricsCollector
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Analyzer runs the full pipeline: load every ContestCounty's records,
// aggregate and score them on a bounded worker pool, rank the flagged
// units and hand the report to each sink.
type Analyzer struct {
	policy  domain.Policy
	workers int
	strict  bool

	source  ports.VoteRecordSource
	sinks   []ports.ReportSink
	logger  logrus.FieldLogger
	metrics ports.MetricsCollector
	clock   func() time.Time
	tracer  trace.Tracer
}

// NewAnalyzer validates cfg's policy and builds an Analyzer.
func NewAnalyzer(cfg *Config, deps AnalyzerDeps) (*Analyzer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("vote record source cannot be nil")
	}

	policy := cfg.Policy.Policy()
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	workers := cfg.Run.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	logger := deps.Logger
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Analyzer{
		policy:  policy,
		workers: workers,
		strict:  cfg.Run.StrictIntegrity,
		source:  deps.Source,
		sinks:   deps.Sinks,
		logger:  logger.WithField("component", "analyzer"),
		metrics: deps.Metrics,
		clock:   clock,
		tracer:  otel.Tracer("tally-analyzer"),
	}, nil
}

// unitInput is one ContestCounty's records, fetched before scoring.
type unitInput struct {
	key     domain.ContestCounty
	records []domain.VoteRecord
}

// unitResult is the outcome of scoring one unitInput.
type unitResult struct {
	tally   *domain.Tally
	anomaly domain.Anomaly
	outcome domain.Outcome
	fault   *domain.IntegrityError
}

// Run executes one analysis and returns the report. The report is also
// returned alongside a sink error so that callers can still inspect it.
func (a *Analyzer) Run(ctx context.Context) (*domain.Report, error) {
	start := a.clock()
	ctx, span := a.tracer.Start(ctx, "Analyzer.Run",
		trace.WithAttributes(
			attribute.Int("workers", a.workers),
			attribute.Bool("strict_integrity", a.strict),
		))
	defer span.End()

	inputs, records, err := a.load(ctx)
	if err != nil {
		return nil, a.fail(span, err)
	}

	results, err := a.score(ctx, inputs)
	if err != nil {
		return nil, a.fail(span, err)
	}

	report := a.assemble(ctx, results)
	report.Stats.Records = records
	report.Stats.Elapsed = a.clock().Sub(start)

	span.SetAttributes(
		attribute.Int("units", report.Stats.Units),
		attribute.Int("flagged", report.Stats.Flagged),
		attribute.Int("faults", report.Stats.Faults),
	)
	a.recordLatency("run", report.Stats.Elapsed)
	a.logger.WithFields(logrus.Fields{
		"run_id":          report.RunID,
		"records":         report.Stats.Records,
		"units":           report.Stats.Units,
		"ineligible":      report.Stats.Ineligible,
		"below_threshold": report.Stats.BelowThreshold,
		"flagged":         report.Stats.Flagged,
		"faults":          report.Stats.Faults,
		"elapsed":         report.Stats.Elapsed,
	}).Info("Analysis complete")

	if err := a.publish(ctx, report); err != nil {
		return report, a.fail(span, err)
	}
	span.SetStatus(codes.Ok, "")
	return report, nil
}

// load reads every ContestCounty's records. Any source error aborts the
// run so that no partial report is produced.
func (a *Analyzer) load(ctx context.Context) ([]unitInput, int, error) {
	ctx, span := a.tracer.Start(ctx, "Analyzer.load")
	defer span.End()
	start := a.clock()

	keys, err := a.source.ContestCounties(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contest counties: %w", err)
	}

	inputs := make([]unitInput, 0, len(keys))
	var records int
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		recs, err := a.source.Records(ctx, key)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load records for %s: %w", key, err)
		}
		records += len(recs)
		inputs = append(inputs, unitInput{key: key, records: recs})
	}

	span.SetAttributes(attribute.Int("units", len(inputs)), attribute.Int("records", records))
	a.recordLatency("load", a.clock().Sub(start))
	if a.metrics != nil {
		a.metrics.RecordGauge(ports.MetricRecords, float64(records), nil)
	}
	a.logger.WithFields(logrus.Fields{
		"units":   len(inputs),
		"records": records,
	}).Debug("Loaded vote records")
	return inputs, records, nil
}

// score aggregates and scores every input concurrently. Results are
// stored by input index, so the output order never depends on scheduling.
func (a *Analyzer) score(ctx context.Context, inputs []unitInput) ([]unitResult, error) {
	ctx, span := a.tracer.Start(ctx, "Analyzer.score",
		trace.WithAttributes(attribute.Int("units", len(inputs))))
	defer span.End()
	start := a.clock()

	results := make([]unitResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i := range inputs {
		idx := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := a.scoreUnit(inputs[idx])
			if err != nil {
				return err
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	a.recordLatency("score", a.clock().Sub(start))
	return results, nil
}

// scoreUnit aggregates and scores one ContestCounty. In strict mode an
// integrity error is returned; otherwise it is carried in the result.
func (a *Analyzer) scoreUnit(in unitInput) (unitResult, error) {
	log := a.logger.WithField("unit", in.key.String())

	tally, err := domain.Aggregate(in.key, in.records)
	if err != nil {
		var ie *domain.IntegrityError
		if !errors.As(err, &ie) {
			return unitResult{}, fmt.Errorf("failed to aggregate %s: %w", in.key, err)
		}
		if a.strict {
			log.WithError(err).Error("Integrity fault")
			return unitResult{}, fmt.Errorf("failed to aggregate %s: %w", in.key, err)
		}
		log.WithError(err).Warn("Integrity fault, skipping unit")
		return unitResult{fault: ie}, nil
	}

	anomaly, outcome := domain.Score(tally, a.policy)
	switch outcome {
	case domain.OutcomeIneligible:
		log.WithFields(logrus.Fields{
			"precincts":   tally.Len(),
			"total_votes": tally.TotalVotes(),
		}).Debug("Skipping ineligible unit")
	case domain.OutcomeBelowThreshold:
		log.WithField("score", anomaly.Score).Debug("Score below threshold")
	case domain.OutcomeFlagged:
		log.WithField("score", anomaly.Rounded).Debug("Unit flagged")
	}

	if a.metrics != nil {
		a.metrics.RecordCounter(ports.MetricUnitsTotal, 1, map[string]string{"outcome": string(outcome)})
		if outcome != domain.OutcomeIneligible {
			a.metrics.RecordHistogram(ports.MetricAnomalyScore, anomaly.Score, nil)
		}
	}

	return unitResult{tally: tally, anomaly: anomaly, outcome: outcome}, nil
}

// assemble ranks flagged anomalies and builds the report.
func (a *Analyzer) assemble(ctx context.Context, results []unitResult) *domain.Report {
	_, span := a.tracer.Start(ctx, "Analyzer.rank")
	defer span.End()

	report := &domain.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: a.clock().UTC(),
		Policy:      a.policy,
		Lookup:      make(map[domain.ContestCounty]domain.Anomaly),
		Tallies:     make(map[domain.ContestCounty]*domain.Tally),
	}

	tallies := make(map[domain.ContestCounty]*domain.Tally)
	var flagged []domain.Anomaly
	for _, res := range results {
		report.Stats.Units++
		if res.fault != nil {
			report.Stats.Faults++
			report.Faults = append(report.Faults, res.fault)
			if a.metrics != nil {
				a.metrics.RecordCounter(ports.MetricUnitsTotal, 1, map[string]string{"outcome": "fault"})
			}
			continue
		}
		report.Stats.Record(res.outcome)
		if res.outcome == domain.OutcomeIneligible {
			continue
		}
		report.Lookup[res.anomaly.Key] = res.anomaly
		tallies[res.anomaly.Key] = res.tally
		if res.outcome == domain.OutcomeFlagged {
			flagged = append(flagged, res.anomaly)
		}
	}

	report.Ranked = domain.Rank(flagged)
	for _, top := range report.Top() {
		report.Tallies[top.Key] = tallies[top.Key]
	}

	if a.metrics != nil {
		a.metrics.RecordGauge(ports.MetricFlagged, float64(len(report.Ranked)), nil)
	}
	span.SetAttributes(attribute.Int("flagged", len(report.Ranked)))
	return report
}

// publish hands the report to every sink. A failing sink does not stop
// the others; all failures are joined into the returned error.
func (a *Analyzer) publish(ctx context.Context, report *domain.Report) error {
	ctx, span := a.tracer.Start(ctx, "Analyzer.publish",
		trace.WithAttributes(attribute.Int("sinks", len(a.sinks))))
	defer span.End()

	var errs []error
	for _, sink := range a.sinks {
		start := a.clock()
		if err := sink.Write(ctx, report); err != nil {
			a.logger.WithError(err).WithField("sink", sink.Name()).Error("Report sink failed")
			errs = append(errs, ports.NewSinkError(sink.Name(), err))
			continue
		}
		a.recordLatency("sink_"+sink.Name(), a.clock().Sub(start))
	}
	return errors.Join(errs...)
}

func (a *Analyzer) recordLatency(stage string, d time.Duration) {
	if a.metrics == nil {
		return
	}
	a.metrics.RecordLatency("analyzer_stage", d, map[string]string{"stage": stage})
}

func (a *Analyzer) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
