package signal

import (
	"math"
	"time"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/scoring"
)

// Decision is the auditable outcome of one entry evaluation.
type Decision struct {
	Allowed   bool
	Reason    string // first failing check when not allowed
	Score     float64
	Threshold float64
	Session   domain.Session
}

// Rejection reason codes, in evaluation order.
const (
	ReasonNonFinite      = "NON_FINITE_SCORE"
	ReasonLongsBlocked   = "LONGS_BLOCKED"
	ReasonEMASlope       = "EMA_SLOPE_BEARISH"
	ReasonBelowThreshold = "BELOW_THRESHOLD"
	ReasonDayOfWeek      = "DAY_OF_WEEK_FLOOR"
	ReasonEuropeFloor    = "EUROPE_SCORE_FLOOR"
	ReasonCooldown       = "COOLDOWN"
)

// Evaluator combines the score, block flags, day-of-week and session
// floors, and the cooldown tracker into a single entry decision. Position
// sizing is fixed elsewhere; this only answers yes or no.
type Evaluator struct {
	cfg      domain.EngineConfig
	cooldown *CooldownTracker
}

// NewEvaluator creates an entry evaluator sharing the given cooldown tracker.
func NewEvaluator(cfg domain.EngineConfig, cooldown *CooldownTracker) *Evaluator {
	return &Evaluator{cfg: cfg, cooldown: cooldown}
}

// Evaluate checks every entry criterion for the bar at barIdx.
// All criteria must hold; the decision records the score, threshold, and
// session that were used either way.
func (e *Evaluator) Evaluate(barIdx int, row *domain.FeatureRow, res scoring.ScoreResult) Decision {
	d := Decision{
		Score:     res.Score,
		Threshold: res.EffectiveThreshold,
		Session:   row.Session,
	}

	if math.IsNaN(res.Score) || math.IsNaN(res.EffectiveThreshold) {
		d.Reason = ReasonNonFinite
		return d
	}
	if row.LongsBlocked {
		d.Reason = ReasonLongsBlocked
		return d
	}
	if !row.EMASlopeBull {
		d.Reason = ReasonEMASlope
		return d
	}
	if res.Score < res.EffectiveThreshold {
		d.Reason = ReasonBelowThreshold
		return d
	}

	// Midweek hard floor, independent of the dynamic threshold.
	if (row.DayOfWeek == time.Wednesday || row.DayOfWeek == time.Thursday) &&
		res.Score < e.cfg.DayOfWeekOverrideScore {
		d.Reason = ReasonDayOfWeek
		return d
	}

	if row.Session == domain.SessionEurope && res.Score < e.cfg.EuropeScoreFloor {
		d.Reason = ReasonEuropeFloor
		return d
	}

	if e.cooldown.IsBlocked(barIdx, row.Close, row.ShiftOverride) {
		d.Reason = ReasonCooldown
		return d
	}

	d.Allowed = true
	return d
}
