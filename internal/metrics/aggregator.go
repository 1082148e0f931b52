package metrics

import (
	"context"
	"errors"
	"fmt"

	"nq-scalper-lab/internal/storage"
)

// ErrNoTrades is returned when a run has no trades to summarize.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Aggregator computes summaries from persisted trade ledgers.
type Aggregator struct {
	tradeStore storage.TradeStore
	runStore   storage.RunStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(tradeStore storage.TradeStore, runStore storage.RunStore) *Aggregator {
	return &Aggregator{
		tradeStore: tradeStore,
		runStore:   runStore,
	}
}

// SummarizeRun loads a run's ledger and computes its summary.
// Returns ErrNoTrades if the run closed no trades.
func (a *Aggregator) SummarizeRun(ctx context.Context, runID string) (*Summary, error) {
	if _, err := a.runStore.GetByID(ctx, runID); err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	trades, err := a.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades for run %s: %w", runID, err)
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	return Compute(trades), nil
}
