package storage

import (
	"context"

	"nq-scalper-lab/internal/domain"
)

// FeatureRowStore provides access to feature_rows storage.
type FeatureRowStore interface {
	// InsertBulk adds multiple rows for a symbol. Fails the entire batch on
	// a duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, symbol string, rows []*domain.FeatureRow) error

	// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.FeatureRow, error)

	// GetByTimeRange retrieves rows for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.FeatureRow, error)
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if (run_id, trade_id) exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByRunID retrieves all trades of a run, ordered by trade_num ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)

	// GetAll retrieves all trades, ordered by entry time ASC, trade_id ASC.
	GetAll(ctx context.Context) ([]*domain.Trade, error)
}

// RunStore provides access to backtest_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// GetAll retrieves all runs, ordered by started_at ASC.
	GetAll(ctx context.Context) ([]*domain.BacktestRun, error)
}
