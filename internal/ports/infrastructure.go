package ports

import (
	"time"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like unit outcomes and faults.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like records loaded per run.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like anomaly scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// Metric names recorded by the analyzer. Collectors route on these.
const (
	MetricUnitsTotal   = "units_total"
	MetricAnomalyScore = "anomaly_score"
	MetricRecords      = "records"
	MetricFlagged      = "flagged_units"
)
