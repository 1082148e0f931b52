// Package signal gates long entries: score vs threshold, block flags,
// day-of-week and session floors, and re-entry cooldown after a close.
package signal

import "math"

// CooldownTracker suppresses immediate re-entry near the price where the
// last position closed. It holds the closing bar index and price and is
// updated only when a position closes.
type CooldownTracker struct {
	bars    int
	pctMove float64

	lastExitBar   int
	lastExitPrice float64
	hasExit       bool
}

// NewCooldownTracker creates a tracker. bars is the suppression window in
// bars, pctMove the minimum fractional price move that releases it early.
func NewCooldownTracker(bars int, pctMove float64) *CooldownTracker {
	return &CooldownTracker{bars: bars, pctMove: pctMove}
}

// RecordExit registers a position close at the given bar index and price.
func (c *CooldownTracker) RecordExit(barIdx int, price float64) {
	c.lastExitBar = barIdx
	c.lastExitPrice = price
	c.hasExit = true
}

// IsBlocked reports whether entry is suppressed at the current bar.
// Blocked only when too few bars have passed AND price has barely moved.
// shiftOverride (a strong bullish reversal) bypasses the block entirely.
// Before any close has occurred nothing is blocked.
func (c *CooldownTracker) IsBlocked(barIdx int, price float64, shiftOverride bool) bool {
	if !c.hasExit {
		return false
	}
	if shiftOverride {
		return false
	}

	if barIdx-c.lastExitBar >= c.bars {
		return false
	}

	if c.lastExitPrice > 0 {
		move := math.Abs(price-c.lastExitPrice) / c.lastExitPrice
		if move >= c.pctMove {
			return false
		}
	}

	return true
}
