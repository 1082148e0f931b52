package feed

import (
	"context"
	"fmt"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/storage"
)

// StoreFeed loads feature rows for one symbol from a FeatureRowStore,
// optionally restricted to a time range.
type StoreFeed struct {
	store  storage.FeatureRowStore
	symbol string

	// Zero start and end mean the full history.
	start, end int64
}

// NewStoreFeed creates a storage-backed feed over the symbol's full history.
func NewStoreFeed(store storage.FeatureRowStore, symbol string) *StoreFeed {
	return &StoreFeed{store: store, symbol: symbol}
}

// NewStoreFeedRange creates a storage-backed feed over [start, end] inclusive.
func NewStoreFeedRange(store storage.FeatureRowStore, symbol string, start, end int64) *StoreFeed {
	return &StoreFeed{store: store, symbol: symbol, start: start, end: end}
}

// Load implements Source.
func (f *StoreFeed) Load(ctx context.Context) ([]*domain.FeatureRow, error) {
	var (
		rows []*domain.FeatureRow
		err  error
	)
	if f.start == 0 && f.end == 0 {
		rows, err = f.store.GetBySymbol(ctx, f.symbol)
	} else {
		rows, err = f.store.GetByTimeRange(ctx, f.symbol, f.start, f.end)
	}
	if err != nil {
		return nil, fmt.Errorf("load feature rows for %s: %w", f.symbol, err)
	}

	if err := ValidateOrdering(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

var _ Source = (*StoreFeed)(nil)
