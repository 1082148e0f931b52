// Package risk computes entry stops/targets and the transaction-cost model.
package risk

import (
	"nq-scalper-lab/internal/domain"
)

// EntryPlan holds the computed parameters for a new long entry.
type EntryPlan struct {
	EntryPrice float64
	StopLoss   float64
	SLDistance float64
	TP1Price   float64
}

// Calculator derives stop and target levels from the injected parameters.
type Calculator struct {
	cfg domain.EngineConfig
}

// NewCalculator creates a risk calculator.
func NewCalculator(cfg domain.EngineConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// PlanEntry computes the entry plan for a long at the bar close.
// technicalStop is the externally supplied stop level (min of the 10-bar
// low and the trend-filter/ATR buffer). Returns nil when the stop sits at
// or above the close; that signal is invalid, not an error.
func (c *Calculator) PlanEntry(close, technicalStop float64) *EntryPlan {
	slDistance := close - technicalStop
	if slDistance <= 0 {
		return nil
	}

	if slDistance > c.cfg.MaxSLPoints {
		slDistance = c.cfg.MaxSLPoints
	}

	stop := close - slDistance
	return &EntryPlan{
		EntryPrice: close,
		StopLoss:   stop,
		SLDistance: slDistance,
		TP1Price:   close + slDistance*c.cfg.RRRatioTP1,
	}
}
