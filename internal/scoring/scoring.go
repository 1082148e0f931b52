// Package scoring turns one feature row into a long score, a confirmation
// count, and the effective entry threshold. Everything here is pure; the
// weights and threshold tables come from the injected config.
package scoring

import (
	"math"

	"nq-scalper-lab/internal/domain"
)

// ScoreResult is the per-bar scoring output.
type ScoreResult struct {
	Score              float64
	ConfirmCount       int
	EffectiveThreshold float64
}

// Engine computes long scores from feature rows.
type Engine struct {
	cfg domain.EngineConfig
}

// NewEngine creates a scoring engine with the given parameter set.
func NewEngine(cfg domain.EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Score evaluates one row. The score is clamped to [0, 10]; the effective
// threshold is base(confirms) + session penalty + ATR-percentile adjustment.
func (e *Engine) Score(row *domain.FeatureRow) ScoreResult {
	score := e.longScore(row)
	confirms := confirmCount(row)

	thresh := e.baseThreshold(confirms) +
		e.sessionPenalty(row.Session) +
		e.atrAdjustment(row.ATRPercentile)

	return ScoreResult{
		Score:              score,
		ConfirmCount:       confirms,
		EffectiveThreshold: thresh,
	}
}

func (e *Engine) longScore(row *domain.FeatureRow) float64 {
	s := 0.0

	// Trend (max 3.5)
	if row.PrimaryBull {
		s += 1.0
	}
	if row.MTF1hBull {
		s += 0.8
	}
	if row.MTF4hBull {
		s += 0.8
	}
	if row.TrendFilterBull {
		s += 0.6
	}
	if row.DailyBull {
		s += 0.3
	}

	// Volume (max 2.5). Spike takes priority; the two weights never stack.
	if row.VolSpike {
		s += 2.5
	} else if row.VolAbove {
		s += 1.5
	}
	if row.VolWeak {
		s -= 0.5
	}

	// Structure (max 2.0)
	if row.BreakoutWithVol {
		s += 0.8
	}
	if row.NearSupport {
		s += 0.4
	}
	if row.ConsBreakout {
		s += 0.4
	}
	if row.NearDailyLevel {
		s += 0.4
	}

	// Momentum (max 1.5)
	if row.RSINeutral {
		s += 0.5
	}
	if row.MACDBull {
		s += 0.5
	}
	if row.ADXStrong {
		s += 0.5
	}

	// Candlestick events
	if row.HammerConfirm {
		s += e.cfg.EventWeights.HammerConfirm
	}
	if row.MorningStar {
		s += e.cfg.EventWeights.MorningStar
	}
	if row.BullEngulf {
		s += e.cfg.EventWeights.BullEngulf
	}

	// Session bonus
	switch row.Session {
	case domain.SessionUS:
		s += 0.3
	case domain.SessionAsia:
		s -= 0.3
	}

	// Penalties
	if row.ADXWeak {
		s -= 0.5
	}
	if row.RSIExtreme {
		s -= 0.5
	}
	if row.LongsBlocked {
		s -= 1.5
	}
	if !row.TrendFilterBull {
		s -= 0.5
	}
	if row.NearResist && !row.BreakoutWithVol {
		s -= 0.3
	}
	if row.VolDeclining {
		s -= 0.3
	}

	return clamp(s, 0.0, 10.0)
}

// confirmCount counts the top-tier trend confirmations.
func confirmCount(row *domain.FeatureRow) int {
	n := 0
	for _, ok := range []bool{
		row.PrimaryBull,
		row.MTF1hBull,
		row.MTF4hBull,
		row.TrendFilterBull,
		row.DailyBull,
	} {
		if ok {
			n++
		}
	}
	return n
}

func (e *Engine) baseThreshold(confirms int) float64 {
	if confirms > 4 {
		confirms = 4
	}
	if confirms < 0 {
		confirms = 0
	}
	return e.cfg.ConfirmThresholds[confirms]
}

func (e *Engine) sessionPenalty(session domain.Session) float64 {
	if p, ok := e.cfg.SessionPenalty[session]; ok {
		return p
	}
	return e.cfg.DefaultSessionPenalty
}

// atrAdjustment maps the ATR percentile to a threshold shift. NaN (warm-up)
// means no adjustment.
func (e *Engine) atrAdjustment(pctile float64) float64 {
	if math.IsNaN(pctile) {
		return 0
	}
	b := e.cfg.ATRAdjustments
	switch {
	case pctile > b.HighPct:
		return b.HighAdj
	case pctile > b.ElevatedPct:
		return b.ElevatedAdj
	case pctile < b.LowPct:
		return b.LowAdj
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
