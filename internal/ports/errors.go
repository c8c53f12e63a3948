package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur while reading vote data or
// delivering reports.
var (
	// ErrMalformedRecord indicates that a source row could not be parsed
	// into a vote record.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrMissingColumn indicates that a tabular source lacks a required
	// column.
	ErrMissingColumn = errors.New("missing column")

	// ErrSourceClosed indicates that a source was used after Close.
	ErrSourceClosed = errors.New("source closed")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// SourceError represents an error from a VoteRecordSource.
// It includes where the failure happened so bad input can be located.
type SourceError struct {
	// Source names the source, typically a file path or store name.
	Source string

	// Line is the 1-based input line, or 0 when not applicable.
	Line int

	// Operation is the name of the operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for SourceError.
func (e *SourceError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("source error: source=%s, line=%d, operation=%s, err=%v",
			e.Source, e.Line, e.Operation, e.Err)
	}
	return fmt.Sprintf("source error: source=%s, operation=%s, err=%v", e.Source, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError creates a new SourceError with the given details.
func NewSourceError(source, operation string, err error) *SourceError {
	return &SourceError{
		Source:    source,
		Operation: operation,
		Err:       err,
	}
}

// SinkError represents an error from a ReportSink.
type SinkError struct {
	// Sink is the name of the sink that failed.
	Sink string

	// Err is the underlying error that caused the write to fail.
	Err error
}

// Error implements the error interface for SinkError.
func (e *SinkError) Error() string {
	return fmt.Sprintf("sink error: sink=%s, err=%v", e.Sink, e.Err)
}

// Unwrap returns the underlying error.
func (e *SinkError) Unwrap() error { return e.Err }

// NewSinkError creates a new SinkError with the given details.
func NewSinkError(sink string, err error) *SinkError {
	return &SinkError{
		Sink: sink,
		Err:  err,
	}
}

// MetricsError represents an error from metrics collection operations.
type MetricsError struct {
	// Metric is the name of the metric that was being collected when the
	// error occurred.
	Metric string

	// Operation is the name of the metrics operation that failed.
	Operation string

	// Err is the underlying error that caused the metrics operation to fail.
	Err error
}

// Error implements the error interface for MetricsError.
func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics error: operation=%s, metric=%s, err=%v", e.Operation, e.Metric, e.Err)
}

// Unwrap returns the underlying error.
func (e *MetricsError) Unwrap() error { return e.Err }

// NewMetricsError creates a new MetricsError with the given details.
func NewMetricsError(metric, operation string, err error) *MetricsError {
	return &MetricsError{
		Metric:    metric,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
