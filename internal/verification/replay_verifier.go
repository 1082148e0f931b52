package verification

import (
	"context"
	"errors"
	"fmt"

	"nq-scalper-lab/internal/backtest"
	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/feed"
	"nq-scalper-lab/internal/storage"
)

// ErrRunNotFound is returned when the run ID doesn't exist.
var ErrRunNotFound = errors.New("run not found")

// ReplayVerifier re-executes a stored run from its source rows and compares
// the resulting ledger with the persisted one, trade by trade.
type ReplayVerifier struct {
	cfg    domain.EngineConfig
	source feed.Source

	tradeStore storage.TradeStore
	runStore   storage.RunStore
}

// NewReplayVerifier creates a verifier. The source must serve the same rows
// the original run consumed.
func NewReplayVerifier(cfg domain.EngineConfig, source feed.Source, tradeStore storage.TradeStore, runStore storage.RunStore) *ReplayVerifier {
	return &ReplayVerifier{
		cfg:        cfg,
		source:     source,
		tradeStore: tradeStore,
		runStore:   runStore,
	}
}

// VerifyRun replays the run and diffs its ledger against storage.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*Report, error) {
	run, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	stored, err := v.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load stored trades: %w", err)
	}

	rows, err := v.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source rows: %w", err)
	}
	if err := feed.ValidateOrdering(rows); err != nil {
		return nil, fmt.Errorf("validate source rows: %w", err)
	}

	result, err := backtest.NewEngine(v.cfg, run.Symbol).Run(rows)
	if err != nil {
		return nil, fmt.Errorf("replay engine: %w", err)
	}
	replayed := result.Trades

	report := &Report{RunID: runID}

	n := len(stored)
	if len(replayed) > n {
		n = len(replayed)
	}
	report.TotalTrades = n

	for i := 0; i < n; i++ {
		switch {
		case i >= len(replayed):
			report.Results = append(report.Results, TradeResult{
				TradeID: stored[i].TradeID,
				Divergences: []FieldDivergence{
					{Field: "Presence", Expected: stored[i].TradeID, Actual: nil},
				},
			})
			report.DivergentTrades++
		case i >= len(stored):
			report.Results = append(report.Results, TradeResult{
				TradeID: replayed[i].TradeID,
				Divergences: []FieldDivergence{
					{Field: "Presence", Expected: nil, Actual: replayed[i].TradeID},
				},
			})
			report.DivergentTrades++
		default:
			divs := CompareTrades(stored[i], replayed[i])
			res := TradeResult{
				TradeID:     stored[i].TradeID,
				Match:       len(divs) == 0,
				Divergences: divs,
			}
			report.Results = append(report.Results, res)
			if res.Match {
				report.MatchedTrades++
			} else {
				report.DivergentTrades++
			}
		}
	}

	return report, nil
}
