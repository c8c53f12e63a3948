// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-tally/internal/domain"
)

// VoteRecordSource supplies per-(contest, county, precinct, choice) vote
// totals to the analyzer. Implementations may be backed by files, a
// relational store, or in-memory fixtures.
//
// The analyzer reads every ContestCounty's records before scoring begins, so
// a source error aborts the run instead of producing a partial report.
type VoteRecordSource interface {
	// ContestCounties lists every ContestCounty the source holds records for,
	// ordered by contest and then county.
	ContestCounties(ctx context.Context) ([]domain.ContestCounty, error)

	// Records returns all records for key. The order is unspecified; the
	// aggregator imposes its own precinct order.
	Records(ctx context.Context, key domain.ContestCounty) ([]domain.VoteRecord, error)
}

// ReportSink consumes a finished report. Sinks print summaries, write chart
// data, or forward results elsewhere. They must treat the report as
// read-only because several sinks receive the same instance.
type ReportSink interface {
	// Name identifies the sink in logs and errors.
	Name() string

	// Write hands the report to the sink.
	Write(ctx context.Context, report *domain.Report) error
}
