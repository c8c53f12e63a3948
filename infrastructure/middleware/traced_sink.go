package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

var _ ports.ReportSink = (*TracedSink)(nil)

// TracedSink decorates a ReportSink with an OpenTelemetry span and a
// write counter. It is stateless and safe for concurrent use.
type TracedSink struct {
	next    ports.ReportSink
	metrics ports.MetricsCollector
}

// NewTracedSink wraps next. metrics may be nil.
func NewTracedSink(next ports.ReportSink, metrics ports.MetricsCollector) *TracedSink {
	if next == nil {
		panic("traced sink: next sink is required")
	}
	return &TracedSink{next: next, metrics: metrics}
}

// Name returns the wrapped sink's name.
func (ts *TracedSink) Name() string { return ts.next.Name() }

// Write forwards to the wrapped sink inside a span.
func (ts *TracedSink) Write(ctx context.Context, report *domain.Report) error {
	tracer := otel.Tracer("report-sink")
	ctx, span := tracer.Start(ctx, "ReportSink.Write", trace.WithAttributes(
		attribute.String("sink.name", ts.next.Name()),
		attribute.String("run.id", report.RunID),
		attribute.Int("report.ranked", len(report.Ranked)),
	))
	defer span.End()

	start := time.Now()
	err := ts.next.Write(ctx, report)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if ts.metrics != nil {
		ts.metrics.RecordCounter("sink_writes_total", 1, map[string]string{"status": status})
		ts.metrics.RecordLatency("sink_write", elapsed, map[string]string{"stage": ts.next.Name()})
	}
	return err
}
