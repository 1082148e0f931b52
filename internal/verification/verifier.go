// Package verification replays stored backtest runs and checks that the
// persisted ledger matches what the engine produces from the same rows.
package verification

import (
	"math"

	"nq-scalper-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// TradeResult contains the result of verifying a single trade.
type TradeResult struct {
	TradeID     string
	Match       bool
	Divergences []FieldDivergence
}

// Report contains results for verifying one run.
type Report struct {
	RunID           string
	TotalTrades     int
	MatchedTrades   int
	DivergentTrades int
	Results         []TradeResult
}

// CompareTrades compares a stored trade with its replayed counterpart and
// returns divergences. RunID is not compared: a replay runs under a fresh
// run identity.
func CompareTrades(stored, replayed *domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence

	str := func(field, expected, actual string) {
		if expected != actual {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
		}
	}
	i64 := func(field string, expected, actual int64) {
		if expected != actual {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
		}
	}
	f64 := func(field string, expected, actual float64) {
		if !floatEquals(expected, actual) {
			divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
		}
	}

	str("TradeID", stored.TradeID, replayed.TradeID)
	i64("TradeNum", int64(stored.TradeNum), int64(replayed.TradeNum))

	i64("EntryTimeMs", stored.EntryTimeMs, replayed.EntryTimeMs)
	f64("EntryPrice", stored.EntryPrice, replayed.EntryPrice)
	f64("StopLoss", stored.StopLoss, replayed.StopLoss)
	f64("SLDistance", stored.SLDistance, replayed.SLDistance)
	f64("TP1Price", stored.TP1Price, replayed.TP1Price)
	f64("EntryScore", stored.EntryScore, replayed.EntryScore)
	str("EntrySession", string(stored.EntrySession), string(replayed.EntrySession))

	i64("ExitTimeMs", stored.ExitTimeMs, replayed.ExitTimeMs)
	f64("ExitPrice", stored.ExitPrice, replayed.ExitPrice)
	str("ExitReason", stored.ExitReason, replayed.ExitReason)
	if stored.TP1Hit != replayed.TP1Hit {
		divergences = append(divergences, FieldDivergence{Field: "TP1Hit", Expected: stored.TP1Hit, Actual: replayed.TP1Hit})
	}
	i64("TrailStage", int64(stored.TrailStage), int64(replayed.TrailStage))

	f64("PnLTP1", stored.PnLTP1, replayed.PnLTP1)
	f64("PnLRunner", stored.PnLRunner, replayed.PnLRunner)
	f64("Costs", stored.Costs, replayed.Costs)
	f64("TotalPnL", stored.TotalPnL, replayed.TotalPnL)
	f64("RRAchieved", stored.RRAchieved, replayed.RRAchieved)
	f64("CapitalAfter", stored.CapitalAfter, replayed.CapitalAfter)

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
