package backtest

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/feed"
	"nq-scalper-lab/internal/observability"
	"nq-scalper-lab/internal/storage"
)

// Runner loads rows from a feed source, runs the engine, and persists the
// resulting run and ledger. The engine itself never sees the RunID:
// trade identities depend only on symbol, sequence, and entry time, so
// replays of the same rows are comparable across runs.
type Runner struct {
	cfg    domain.EngineConfig
	symbol string

	source feed.Source

	// Optional; nil stores skip persistence.
	tradeStore storage.TradeStore
	runStore   storage.RunStore

	obs    *observability.Metrics
	logger *log.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStores attaches persistence backends.
func WithStores(trades storage.TradeStore, runs storage.RunStore) RunnerOption {
	return func(r *Runner) {
		r.tradeStore = trades
		r.runStore = runs
	}
}

// WithObservability attaches prometheus metrics.
func WithObservability(obs *observability.Metrics) RunnerOption {
	return func(r *Runner) { r.obs = obs }
}

// NewRunner creates a runner over the given source.
func NewRunner(cfg domain.EngineConfig, symbol string, source feed.Source, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:    cfg,
		symbol: symbol,
		source: source,
		logger: log.New(os.Stderr, "[backtest] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one complete backtest: load, validate ordering, run the
// engine, persist. Returns the run record and the finished result.
func (r *Runner) Run(ctx context.Context) (*domain.BacktestRun, *Result, error) {
	started := time.Now()

	rows, err := r.source.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load rows: %w", err)
	}
	if err := feed.ValidateOrdering(rows); err != nil {
		return nil, nil, fmt.Errorf("validate rows: %w", err)
	}
	r.logger.Printf("loaded %d rows for %s", len(rows), r.symbol)

	engine := NewEngine(r.cfg, r.symbol)
	result, err := engine.Run(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("engine run: %w", err)
	}

	run := &domain.BacktestRun{
		RunID:        uuid.NewString(),
		Symbol:       r.symbol,
		StartedAtMs:  started.UnixMilli(),
		BarsTotal:    result.Stats.BarsTotal,
		BarsSkipped:  result.Stats.SkippedBars,
		SignalsSeen:  result.Stats.SignalsAllowed + result.Stats.SignalsRejected,
		RejectedRows: result.Stats.InvalidPlans,
		TradeCount:   len(result.Trades),
		FinalCapital: result.FinalCapital,
	}
	for _, t := range result.Trades {
		t.RunID = run.RunID
	}

	if err := r.persist(ctx, run, result.Trades); err != nil {
		return nil, nil, err
	}
	r.observe(result, time.Since(started))

	r.logger.Printf("run %s finished: %d trades, final capital %.2f (%.1fs)",
		run.RunID, run.TradeCount, run.FinalCapital, time.Since(started).Seconds())
	return run, result, nil
}

func (r *Runner) persist(ctx context.Context, run *domain.BacktestRun, trades []*domain.Trade) error {
	if r.runStore != nil {
		if err := r.runStore.Insert(ctx, run); err != nil {
			return fmt.Errorf("insert run %s: %w", run.RunID, err)
		}
	}
	if r.tradeStore != nil && len(trades) > 0 {
		if err := r.tradeStore.InsertBulk(ctx, trades); err != nil {
			return fmt.Errorf("insert %d trades for run %s: %w", len(trades), run.RunID, err)
		}
	}
	return nil
}

func (r *Runner) observe(result *Result, elapsed time.Duration) {
	if r.obs == nil {
		return
	}
	r.obs.BarsProcessed.Add(float64(result.Stats.BarsTotal))
	r.obs.BarsSkipped.Add(float64(result.Stats.SkippedBars))
	r.obs.SignalsRejected.Add(float64(result.Stats.SignalsRejected))
	r.obs.TradesClosed.Add(float64(len(result.Trades)))
	r.obs.FinalCapital.Set(result.FinalCapital)
	r.obs.RunDuration.Observe(elapsed.Seconds())
}
