// Package metrics computes performance summaries over closed trade ledgers.
package metrics

import (
	"math"
	"sort"

	"nq-scalper-lab/internal/domain"
)

// Breakdown is a per-bucket slice of the ledger.
type Breakdown struct {
	Count    int
	Wins     int
	TotalPnL float64
}

// Summary holds all performance metrics for one trade ledger.
type Summary struct {
	// Counts
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64
	TP1HitRate  float64

	// PnL
	GrossProfit  float64
	GrossLoss    float64 // positive magnitude
	NetPnL       float64
	TotalCosts   float64
	ProfitFactor float64 // +Inf when profitable with no losing trades
	Expectancy   float64 // mean total PnL per trade
	AvgRR        float64

	// PnL distribution
	PnLMedian float64
	PnLP10    float64
	PnLP25    float64
	PnLP75    float64
	PnLP90    float64
	PnLMin    float64
	PnLMax    float64
	PnLStddev float64

	// Order-dependent
	MaxDrawdown          float64 // worst peak-to-trough on cumulative PnL, dollars
	MaxConsecutiveLosses int

	// Breakdowns
	ByExitReason map[string]Breakdown
	BySession    map[domain.Session]Breakdown
}

// Compute calculates all metrics from a slice of trades. Trades are sorted
// by EntryTimeMs ASC, TradeID ASC before computing order-dependent metrics
// (MaxDrawdown, MaxConsecutiveLosses).
func Compute(trades []*domain.Trade) *Summary {
	n := len(trades)
	if n == 0 {
		return &Summary{
			ByExitReason: map[string]Breakdown{},
			BySession:    map[domain.Session]Breakdown{},
		}
	}

	sorted := make([]*domain.Trade, n)
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].EntryTimeMs != sorted[j].EntryTimeMs {
			return sorted[i].EntryTimeMs < sorted[j].EntryTimeMs
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	s := &Summary{
		TotalTrades:  n,
		ByExitReason: make(map[string]Breakdown),
		BySession:    make(map[domain.Session]Breakdown),
	}

	pnls := make([]float64, n)
	tp1Hits := 0
	rrSum := 0.0
	for i, t := range sorted {
		pnls[i] = t.TotalPnL
		s.NetPnL += t.TotalPnL
		s.TotalCosts += t.Costs
		rrSum += t.RRAchieved

		if t.TotalPnL > 0 {
			s.Wins++
			s.GrossProfit += t.TotalPnL
		} else {
			s.Losses++
			s.GrossLoss += -t.TotalPnL
		}
		if t.TP1Hit {
			tp1Hits++
		}

		addBucket(s.ByExitReason, t.ExitReason, t)
		addBucket(s.BySession, t.EntrySession, t)
	}

	s.WinRate = float64(s.Wins) / float64(n)
	s.TP1HitRate = float64(tp1Hits) / float64(n)
	s.Expectancy = s.NetPnL / float64(n)
	s.AvgRR = rrSum / float64(n)
	s.ProfitFactor = profitFactor(s.GrossProfit, s.GrossLoss)

	sortedPnls := make([]float64, n)
	copy(sortedPnls, pnls)
	sort.Float64s(sortedPnls)

	s.PnLMedian = percentile(sortedPnls, 0.50)
	s.PnLP10 = percentile(sortedPnls, 0.10)
	s.PnLP25 = percentile(sortedPnls, 0.25)
	s.PnLP75 = percentile(sortedPnls, 0.75)
	s.PnLP90 = percentile(sortedPnls, 0.90)
	s.PnLMin = sortedPnls[0]
	s.PnLMax = sortedPnls[n-1]
	s.PnLStddev = stddev(pnls, s.Expectancy)

	s.MaxDrawdown = maxDrawdown(pnls)
	s.MaxConsecutiveLosses = maxConsecutiveLosses(pnls)

	return s
}

func addBucket[K comparable](m map[K]Breakdown, key K, t *domain.Trade) {
	b := m[key]
	b.Count++
	if t.TotalPnL > 0 {
		b.Wins++
	}
	b.TotalPnL += t.TotalPnL
	m[key] = b
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return grossProfit / grossLoss
}

// stddev calculates sample standard deviation (n-1 denominator).
func stddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// percentile uses linear interpolation. sorted must be pre-sorted ASC;
// p is the percentile (0.10 = 10th percentile).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// maxDrawdown calculates worst peak-to-trough on cumulative PnL.
// PnLs must be in chronological order.
func maxDrawdown(pnls []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDD := 0.0

	for _, p := range pnls {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// maxConsecutiveLosses finds the longest streak of total_pnl <= 0.
// PnLs must be in chronological order.
func maxConsecutiveLosses(pnls []float64) int {
	maxStreak := 0
	streak := 0

	for _, p := range pnls {
		if p <= 0 {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return maxStreak
}
