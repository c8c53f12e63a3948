// Package middleware provides cross-cutting concerns for the analyzer:
// Prometheus metrics, their textfile export and traced report sinks.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-tally/internal/ports"
)

const namespace = "tally"

// scoreBuckets spans the useful range of anomaly scores; the default flag
// threshold is 0.04.
var scoreBuckets = []float64{0.005, 0.01, 0.02, 0.04, 0.08, 0.16, 0.32, 0.64, 1.28}

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. Each instance owns its registry, so several runs (or tests)
// in one process never collide on registration.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	unitsTotal     *prometheus.CounterVec
	anomalyScore   *prometheus.HistogramVec
	stageLatency   *prometheus.HistogramVec
	operationTotal *prometheus.CounterVec
	runGauges      *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance with all
// metrics registered in a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		unitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      ports.MetricUnitsTotal,
				Help:      "ContestCounties processed, by scoring outcome.",
			},
			[]string{"outcome"},
		),
		anomalyScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      ports.MetricAnomalyScore,
				Help:      "Distribution of unrounded anomaly scores of eligible units.",
				Buckets:   scoreBuckets,
			},
			[]string{"metric"},
		),
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Execution time of analyzer stages and sinks.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "stage"},
		),
		operationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Other counted events, by metric name and status.",
			},
			[]string{"metric", "status"},
		),
		runGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_state",
				Help:      "Values describing the most recent run.",
			},
			[]string{"metric"},
		),
	}
}

// Registry returns the registry holding this instance's metrics.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry { return pm.registry }

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.stageLatency.WithLabelValues(operation, labelOr(labels, "stage", "unknown")).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricUnitsTotal:
		pm.unitsTotal.WithLabelValues(labelOr(labels, "outcome", "unknown")).Add(value)
	default:
		pm.operationTotal.WithLabelValues(metric, labelOr(labels, "status", "success")).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, _ map[string]string,
) {
	pm.runGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram. Anomaly scores and any other observed
// values share the score buckets, separated by the metric label.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, _ map[string]string,
) {
	pm.anomalyScore.WithLabelValues(metric).Observe(value)
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
