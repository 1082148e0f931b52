package memory

import (
	"context"
	"sort"
	"sync"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/storage"
)

// FeatureRowStore is an in-memory implementation of storage.FeatureRowStore.
type FeatureRowStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]*domain.FeatureRow // symbol -> timestamp_ms -> row
}

// NewFeatureRowStore creates a new in-memory feature row store.
func NewFeatureRowStore() *FeatureRowStore {
	return &FeatureRowStore{
		data: make(map[string]map[int64]*domain.FeatureRow),
	}
}

// InsertBulk adds multiple rows for a symbol. Fails the entire batch on a
// duplicate (symbol, timestamp_ms).
func (s *FeatureRowStore) InsertBulk(_ context.Context, symbol string, rows []*domain.FeatureRow) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[symbol]
	batch := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.TimestampMs <= 0 {
			return storage.ErrInvalidInput
		}
		if _, ok := existing[r.TimestampMs]; ok {
			return storage.ErrDuplicateKey
		}
		if _, ok := batch[r.TimestampMs]; ok {
			return storage.ErrDuplicateKey
		}
		batch[r.TimestampMs] = struct{}{}
	}

	if existing == nil {
		existing = make(map[int64]*domain.FeatureRow, len(rows))
		s.data[symbol] = existing
	}
	for _, r := range rows {
		cp := *r
		existing[r.TimestampMs] = &cp
	}
	return nil
}

// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
func (s *FeatureRowStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(symbol, func(*domain.FeatureRow) bool { return true }), nil
}

// GetByTimeRange retrieves rows for a symbol within [start, end] (inclusive).
func (s *FeatureRowStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(symbol, func(r *domain.FeatureRow) bool {
		return r.TimestampMs >= start && r.TimestampMs <= end
	}), nil
}

func (s *FeatureRowStore) collect(symbol string, keep func(*domain.FeatureRow) bool) []*domain.FeatureRow {
	var result []*domain.FeatureRow
	for _, r := range s.data[symbol] {
		if keep(r) {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result
}

var _ storage.FeatureRowStore = (*FeatureRowStore)(nil)
