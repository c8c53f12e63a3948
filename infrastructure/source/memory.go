package source

import (
	"context"
	"slices"

	"github.com/samber/lo"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

var _ ports.VoteRecordSource = (*MemorySource)(nil)

// MemorySource is a VoteRecordSource over an in-memory slice, grouped by
// ContestCounty once at construction.
type MemorySource struct {
	keys   []domain.ContestCounty
	groups map[domain.ContestCounty][]domain.VoteRecord
}

// NewMemorySource groups records by ContestCounty.
func NewMemorySource(records []domain.VoteRecord) *MemorySource {
	groups := lo.GroupBy(records, domain.VoteRecord.Key)
	keys := lo.Keys(groups)
	slices.SortFunc(keys, domain.ContestCounty.Compare)
	return &MemorySource{keys: keys, groups: groups}
}

// ContestCounties implements ports.VoteRecordSource.
func (m *MemorySource) ContestCounties(ctx context.Context) ([]domain.ContestCounty, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(m.keys), nil
}

// Records implements ports.VoteRecordSource. Unknown keys yield no records.
func (m *MemorySource) Records(ctx context.Context, key domain.ContestCounty) ([]domain.VoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(m.groups[key]), nil
}
