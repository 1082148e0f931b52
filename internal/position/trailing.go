// Package position owns the lifecycle of the single open long: the
// pre-TP1 stop/target checks and the 3-stage trailing stop on the runner.
package position

import (
	"math"

	"nq-scalper-lab/internal/domain"
)

// TrailingStop manages the runner contract after TP1:
//
//	stage 1  breakeven     trail = entry
//	stage 2  profit >= sl*1.5   trail = entry + sl*0.5
//	stage 3  profit >= sl*2.0   trail = max(close - ATR*mult, trend filter line)
//
// The stage never decreases and the trail only ratchets upward, never below
// the entry price.
type TrailingStop struct {
	entryPrice float64
	slDistance float64

	stage2Mult   float64
	stage3Mult   float64
	stage2Offset float64
	atrMult      float64

	stage     int
	trailStop float64
}

// NewTrailingStop starts a trailing stop at breakeven (stage 1).
func NewTrailingStop(entryPrice, slDistance float64, cfg domain.EngineConfig) *TrailingStop {
	return &TrailingStop{
		entryPrice:   entryPrice,
		slDistance:   slDistance,
		stage2Mult:   cfg.TrailStage2Mult,
		stage3Mult:   cfg.TrailStage3Mult,
		stage2Offset: cfg.TrailStage2Offset,
		atrMult:      cfg.TrailATRMult,
		stage:        1,
		trailStop:    entryPrice,
	}
}

// Stage returns the current trail stage (1..3).
func (t *TrailingStop) Stage() int { return t.stage }

// TrailStop returns the current trail level.
func (t *TrailingStop) TrailStop() float64 { return t.trailStop }

// Update advances the stage from the bar's unrealized profit, then ratchets
// the trail for the resulting stage. Stage upgrades cascade within a single
// bar (1→2→3 when profit clears both gates at once). A NaN ATR skips the
// stage-3 recompute for this bar; the existing trail stands.
func (t *TrailingStop) Update(barClose, atr, trendFilterLine float64) {
	profit := barClose - t.entryPrice

	if t.stage == 1 && profit >= t.slDistance*t.stage2Mult {
		t.stage = 2
		// The stage-2 level is locked in on the upgrade itself, so a
		// same-bar cascade to stage 3 can never report the trail below it.
		t.ratchet(t.entryPrice + t.slDistance*t.stage2Offset)
	}
	if t.stage == 2 && profit >= t.slDistance*t.stage3Mult {
		t.stage = 3
	}

	candidate := t.trailStop
	switch t.stage {
	case 1:
		candidate = t.entryPrice
	case 2:
		candidate = t.entryPrice + t.slDistance*t.stage2Offset
	case 3:
		if !math.IsNaN(atr) {
			candidate = barClose - atr*t.atrMult
			if !math.IsNaN(trendFilterLine) && trendFilterLine > candidate {
				candidate = trendFilterLine
			}
		}
	}
	t.ratchet(candidate)
}

// ratchet raises the trail to candidate, clamped to entry, never lowering it.
func (t *TrailingStop) ratchet(candidate float64) {
	if candidate < t.entryPrice {
		candidate = t.entryPrice
	}
	if candidate > t.trailStop {
		t.trailStop = candidate
	}
}

// IsStopped reports whether the bar low took out the trail.
func (t *TrailingStop) IsStopped(barLow float64) bool {
	return barLow <= t.trailStop
}
