package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/types"
)

// MemoryRepository keeps the records of one entity in process. Records are
// copied in and out so callers never share state with the repository.
type MemoryRepository struct {
	mu       sync.RWMutex
	registry *filter.Registry
	filter   *filter.RecordFilter
	records  []types.Record
	index    map[string]int
}

func NewMemoryRepository(registry *filter.Registry, opts ...filter.Option) *MemoryRepository {
	return &MemoryRepository{
		registry: registry,
		filter:   filter.ForRegistry(registry, opts...),
		records:  make([]types.Record, 0),
		index:    make(map[string]int),
	}
}

func (r *MemoryRepository) Load(ctx context.Context, records []types.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		normalized := normalizeRecord(r.registry, record)
		id := normalized.ID()
		if id == "" {
			return fmt.Errorf("record %d of %s has no id", i, r.registry.Entity())
		}
		if _, exists := r.index[id]; exists {
			continue
		}
		r.index[id] = len(r.records)
		r.records = append(r.records, normalized)
	}
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, query Query) (*types.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return runQuery(r.records, query, r.filter), nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, r.registry.Entity(), id)
	}
	return r.records[pos].Clone(), nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, patch types.Record) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prepared, err := preparePatch(r.registry, id, patch)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, r.registry.Entity(), id)
	}
	updated := r.records[pos].Merge(prepared)
	r.records[pos] = updated
	return updated.Clone(), nil
}
