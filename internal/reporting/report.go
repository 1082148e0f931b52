// Package reporting renders run reports: the trade ledger as CSV and a
// Markdown performance summary.
package reporting

import (
	"time"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/metrics"
)

// Report is the complete output for one backtest run.
type Report struct {
	GeneratedAt time.Time

	Run     *domain.BacktestRun
	Summary *metrics.Summary

	// Trades in ledger order (trade_num ASC).
	Trades []*domain.Trade
}
