// Package backtest drives the sequential bar loop: entry gating, position
// management, cost accounting, and the trade ledger.
package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/idhash"
	"nq-scalper-lab/internal/position"
	"nq-scalper-lab/internal/risk"
	"nq-scalper-lab/internal/scoring"
	"nq-scalper-lab/internal/signal"
)

// ErrPositionInvariant indicates an attempt to open a second concurrent
// position. This is a sequencing fault, not a data condition; the run
// aborts instead of overwriting state.
var ErrPositionInvariant = errors.New("single open position invariant violated")

// Stats counts recoverable anomalies so a run can always complete and
// report partial findings.
type Stats struct {
	BarsTotal       int
	WarmUpBars      int
	SkippedBars     int // maintenance, Saturday, or NaN bars not evaluated for entry
	SignalsAllowed  int
	SignalsRejected int
	InvalidPlans    int // entries rejected for a non-positive stop distance
}

// Result is the output of one engine run.
type Result struct {
	Trades       []*domain.Trade
	FinalCapital float64
	Stats        Stats
}

// Engine walks ordered feature rows, at most one open position at a time.
// All mutable state (cooldown, position, capital) lives on the engine
// instance; a fresh engine over the same rows reproduces the ledger
// byte for byte.
type Engine struct {
	cfg    domain.EngineConfig
	symbol string

	scorer    *scoring.Engine
	cooldown  *signal.CooldownTracker
	evaluator *signal.Evaluator
	riskCalc  *risk.Calculator
	costModel *risk.CostModel

	machine *position.StateMachine // nil while flat
	capital float64
	trades  []*domain.Trade
	stats   Stats
}

// NewEngine creates an engine with freshly initialized state.
func NewEngine(cfg domain.EngineConfig, symbol string) *Engine {
	cooldown := signal.NewCooldownTracker(cfg.CooldownBars, cfg.CooldownPctMove)
	return &Engine{
		cfg:       cfg,
		symbol:    symbol,
		scorer:    scoring.NewEngine(cfg),
		cooldown:  cooldown,
		evaluator: signal.NewEvaluator(cfg, cooldown),
		riskCalc:  risk.NewCalculator(cfg),
		costModel: risk.NewCostModel(cfg),
		capital:   cfg.InitialCapital,
	}
}

// Run executes the backtest over rows, which must be in strictly ascending
// timestamp order. Decisions for bar i use only bar i and earlier.
func (e *Engine) Run(rows []*domain.FeatureRow) (*Result, error) {
	e.stats.BarsTotal = len(rows)

	for i, row := range rows {
		// Warm-up bars only stabilize upstream indicator state.
		if i < e.cfg.WarmUpBars {
			e.stats.WarmUpBars++
			continue
		}

		if err := e.step(i, row); err != nil {
			return nil, fmt.Errorf("bar %d (ts %d): %w", i, row.TimestampMs, err)
		}
	}

	return &Result{
		Trades:       e.trades,
		FinalCapital: e.capital,
		Stats:        e.stats,
	}, nil
}

func (e *Engine) step(i int, row *domain.FeatureRow) error {
	if e.machine != nil {
		res := e.machine.Step(row)
		if res != nil {
			e.closePosition(i, row, res)
		}
		// A closing bar never opens the next position.
		return nil
	}

	// Flat: maintenance, Saturday, and NaN bars are not evaluated for entry.
	if row.IsMaintenance || row.DayOfWeek == time.Saturday || math.IsNaN(row.Close) {
		e.stats.SkippedBars++
		return nil
	}

	score := e.scorer.Score(row)
	decision := e.evaluator.Evaluate(i, row, score)
	if !decision.Allowed {
		e.stats.SignalsRejected++
		return nil
	}
	e.stats.SignalsAllowed++

	plan := e.riskCalc.PlanEntry(row.Close, row.TechnicalStop)
	if plan == nil {
		e.stats.InvalidPlans++
		return nil
	}

	return e.openPosition(i, row, plan, decision)
}

func (e *Engine) openPosition(i int, row *domain.FeatureRow, plan *risk.EntryPlan, d signal.Decision) error {
	if e.machine != nil {
		return ErrPositionInvariant
	}

	e.machine = position.Open(e.cfg, &domain.Position{
		EntryBar:     i,
		EntryTimeMs:  row.TimestampMs,
		EntryPrice:   plan.EntryPrice,
		StopLoss:     plan.StopLoss,
		SLDistance:   plan.SLDistance,
		TP1Price:     plan.TP1Price,
		EntryScore:   d.Score,
		EntrySession: d.Session,
		Contracts:    e.cfg.Contracts,
	})
	return nil
}

// closePosition converts the open position into an immutable Trade, updates
// capital, and arms the cooldown with the closing bar.
func (e *Engine) closePosition(i int, row *domain.FeatureRow, res *position.StepResult) {
	pos := e.machine.Position()
	pv := e.cfg.PointValue

	var pnlTP1, pnlRunner float64
	if res.TP1Hit {
		pnlTP1 = (pos.TP1Price - pos.EntryPrice) * pv
		pnlRunner = (res.ExitPrice - pos.EntryPrice) * pv
	} else {
		pnlRunner = (res.ExitPrice - pos.EntryPrice) * pv * float64(e.cfg.Contracts)
	}

	costs := e.costModel.Costs(res.TP1Hit)
	totalPnL := pnlTP1 + pnlRunner - costs
	e.capital += totalPnL

	rr := 0.0
	if pos.SLDistance > 0 {
		rr = (res.ExitPrice - pos.EntryPrice) / pos.SLDistance
	}

	tradeNum := len(e.trades) + 1
	e.trades = append(e.trades, &domain.Trade{
		TradeID:  idhash.ComputeTradeID(e.symbol, tradeNum, pos.EntryTimeMs),
		TradeNum: tradeNum,

		EntryTimeMs:  pos.EntryTimeMs,
		EntryPrice:   pos.EntryPrice,
		StopLoss:     pos.StopLoss,
		SLDistance:   pos.SLDistance,
		TP1Price:     pos.TP1Price,
		EntryScore:   pos.EntryScore,
		EntrySession: pos.EntrySession,

		ExitTimeMs: row.TimestampMs,
		ExitPrice:  res.ExitPrice,
		ExitReason: res.ExitReason,
		TP1Hit:     res.TP1Hit,
		TrailStage: res.TrailStage,

		PnLTP1:       pnlTP1,
		PnLRunner:    pnlRunner,
		Costs:        costs,
		TotalPnL:     totalPnL,
		RRAchieved:   rr,
		CapitalAfter: e.capital,
	})

	e.cooldown.RecordExit(i, res.ExitPrice)
	e.machine = nil
}

// Capital returns the current account capital.
func (e *Engine) Capital() float64 { return e.capital }

// OpenPosition returns the currently open position, or nil while flat.
func (e *Engine) OpenPosition() *domain.Position {
	if e.machine == nil {
		return nil
	}
	return e.machine.Position()
}
