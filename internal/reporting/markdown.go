package reporting

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"nq-scalper-lab/internal/domain"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Run summary
	sb.WriteString("## Run\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.Run.RunID))
	sb.WriteString(fmt.Sprintf("| Symbol | %s |\n", r.Run.Symbol))
	sb.WriteString(fmt.Sprintf("| Bars Total | %d |\n", r.Run.BarsTotal))
	sb.WriteString(fmt.Sprintf("| Bars Skipped | %d |\n", r.Run.BarsSkipped))
	sb.WriteString(fmt.Sprintf("| Signals Seen | %d |\n", r.Run.SignalsSeen))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", r.Run.TradeCount))
	sb.WriteString(fmt.Sprintf("| Final Capital | %.2f |\n", r.Run.FinalCapital))
	sb.WriteString("\n")

	// Performance
	s := r.Summary
	sb.WriteString("## Performance\n\n")
	if s == nil || s.TotalTrades == 0 {
		sb.WriteString("No closed trades.\n")
		return sb.String()
	}

	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", s.WinRate*100))
	sb.WriteString(fmt.Sprintf("| TP1 Hit Rate | %.2f%% |\n", s.TP1HitRate*100))
	sb.WriteString(fmt.Sprintf("| Net PnL | %.2f |\n", s.NetPnL))
	sb.WriteString(fmt.Sprintf("| Total Costs | %.2f |\n", s.TotalCosts))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", formatProfitFactor(s.ProfitFactor)))
	sb.WriteString(fmt.Sprintf("| Expectancy | %.2f |\n", s.Expectancy))
	sb.WriteString(fmt.Sprintf("| Avg R:R | %.2f |\n", s.AvgRR))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f |\n", s.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
	sb.WriteString(fmt.Sprintf("| PnL Median | %.2f |\n", s.PnLMedian))
	sb.WriteString(fmt.Sprintf("| PnL P10 / P90 | %.2f / %.2f |\n", s.PnLP10, s.PnLP90))
	sb.WriteString(fmt.Sprintf("| PnL Min / Max | %.2f / %.2f |\n", s.PnLMin, s.PnLMax))
	sb.WriteString("\n")

	// Exit reason breakdown
	sb.WriteString("## Exits\n\n")
	sb.WriteString("| Exit Reason | Count | Wins | Total PnL |\n")
	sb.WriteString("|-------------|-------|------|----------|\n")
	for _, reason := range sortedKeys(s.ByExitReason) {
		b := s.ByExitReason[reason]
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f |\n", reason, b.Count, b.Wins, b.TotalPnL))
	}
	sb.WriteString("\n")

	// Session breakdown
	sb.WriteString("## Sessions\n\n")
	sb.WriteString("| Session | Count | Wins | Total PnL |\n")
	sb.WriteString("|---------|-------|------|----------|\n")
	sessions := make([]string, 0, len(s.BySession))
	for sess := range s.BySession {
		sessions = append(sessions, string(sess))
	}
	sort.Strings(sessions)
	for _, sess := range sessions {
		b := s.BySession[domain.Session(sess)]
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f |\n", sess, b.Count, b.Wins, b.TotalPnL))
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
