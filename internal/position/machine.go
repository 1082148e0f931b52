package position

import (
	"math"
	"time"

	"nq-scalper-lab/internal/domain"
)

// StepResult reports what happened to the position on one bar. A nil result
// from Step means the position carried over open.
type StepResult struct {
	ExitPrice  float64
	ExitReason string
	TP1Hit     bool
	TrailStage int // 0 when TP1 never hit
}

// StateMachine drives one open long position bar by bar. The fixed intra-bar
// order is: skip-bar check, EOD close, stop/TP1 (stop first), then for the
// runner: stage upgrade, trail recompute, trail-hit test.
type StateMachine struct {
	cfg   domain.EngineConfig
	pos   *domain.Position
	trail *TrailingStop
}

// Open wraps a freshly entered position.
func Open(cfg domain.EngineConfig, pos *domain.Position) *StateMachine {
	return &StateMachine{cfg: cfg, pos: pos}
}

// Position returns the managed position.
func (m *StateMachine) Position() *domain.Position { return m.pos }

// TrailStage returns the current runner stage, 0 before TP1.
func (m *StateMachine) TrailStage() int {
	if m.trail == nil {
		return 0
	}
	return m.trail.Stage()
}

// Step processes one bar. Returns nil while the position stays open.
func (m *StateMachine) Step(row *domain.FeatureRow) *StepResult {
	// Maintenance hour and Saturday bars carry the position unmanaged.
	if row.IsMaintenance || row.DayOfWeek == time.Saturday {
		return nil
	}

	// Forced end-of-day close of whatever remains.
	if m.cfg.UseEODClose && row.IsSessionEnd {
		return &StepResult{
			ExitPrice:  row.Close,
			ExitReason: domain.ExitReasonEODClose,
			TP1Hit:     m.pos.TP1Hit,
			TrailStage: m.TrailStage(),
		}
	}

	if !m.pos.TP1Hit {
		return m.stepFull(row)
	}
	return m.stepRunner(row)
}

// stepFull manages the initial 2-contract position. Stop resolves before
// TP1 when one bar spans both levels.
func (m *StateMachine) stepFull(row *domain.FeatureRow) *StepResult {
	if row.Low <= m.pos.StopLoss {
		return &StepResult{
			ExitPrice:  m.pos.StopLoss,
			ExitReason: domain.ExitReasonFullStop,
			TP1Hit:     false,
			TrailStage: 0,
		}
	}

	if row.High >= m.pos.TP1Price {
		m.pos.TP1Hit = true
		m.pos.Contracts = 1
		m.trail = NewTrailingStop(m.pos.EntryPrice, m.pos.SLDistance, m.cfg)
	}

	return nil
}

// stepRunner manages the remaining contract. Upgrade before the stop test:
// the stage-upgraded trail level is what the bar low is checked against.
func (m *StateMachine) stepRunner(row *domain.FeatureRow) *StepResult {
	if !math.IsNaN(row.Close) {
		m.trail.Update(row.Close, row.ATR, m.trendLine(row))
	}

	if m.trail.IsStopped(row.Low) {
		return &StepResult{
			ExitPrice:  m.trail.TrailStop(),
			ExitReason: trailReason(m.trail.Stage()),
			TP1Hit:     true,
			TrailStage: m.trail.Stage(),
		}
	}

	return nil
}

// trendLine returns the trend-filter line as a stage-3 trail floor, only
// while the filter is bullish.
func (m *StateMachine) trendLine(row *domain.FeatureRow) float64 {
	if row.TrendFilterBull {
		return row.TrendFilterLine
	}
	return math.NaN()
}

func trailReason(stage int) string {
	switch stage {
	case 1:
		return domain.ExitReasonTrailS1
	case 2:
		return domain.ExitReasonTrailS2
	default:
		return domain.ExitReasonTrailS3
	}
}
