package source

import (
	"context"
	"fmt"

	"github.com/ahrav/go-tally/internal/ports"
)

// Store kinds accepted by Open.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Staged is a VoteRecordSource holding a parsed results file. Close
// releases any backing store.
type Staged interface {
	ports.VoteRecordSource
	Close() error
}

// Open reads the results file at path and stages its records in the
// requested store.
func Open(ctx context.Context, path, store string) (Staged, int, error) {
	records, err := ReadFile(ctx, path)
	if err != nil {
		return nil, 0, err
	}

	switch store {
	case StoreMemory:
		return nopCloser{NewMemorySource(records)}, len(records), nil
	case StoreSQLite, "":
		s, err := NewSQLiteStore()
		if err != nil {
			return nil, 0, err
		}
		if err := s.Insert(ctx, records); err != nil {
			s.Close()
			return nil, 0, err
		}
		return s, len(records), nil
	default:
		return nil, 0, fmt.Errorf("unsupported store %q", store)
	}
}

type nopCloser struct {
	*MemorySource
}

func (nopCloser) Close() error { return nil }
