package reporting

import (
	"fmt"
	"strings"

	"nq-scalper-lab/internal/domain"
)

// RenderTradesCSV renders the trade ledger as a CSV string. Column order is
// stable so diffs between runs line up trade by trade.
func RenderTradesCSV(trades []*domain.Trade) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_num,trade_id,run_id,")
	sb.WriteString("entry_time_ms,entry_price,stop_loss,sl_distance,tp1_price,entry_score,entry_session,")
	sb.WriteString("exit_time_ms,exit_price,exit_reason,tp1_hit,trail_stage,")
	sb.WriteString("pnl_tp1,pnl_runner,costs,total_pnl,rr_achieved,capital_after\n")

	// Rows
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%d,%.2f,%.2f,%.2f,%.2f,%.2f,%s,%d,%.2f,%s,%t,%d,%.2f,%.2f,%.2f,%.2f,%.4f,%.2f\n",
			t.TradeNum,
			t.TradeID,
			t.RunID,
			t.EntryTimeMs,
			t.EntryPrice,
			t.StopLoss,
			t.SLDistance,
			t.TP1Price,
			t.EntryScore,
			t.EntrySession,
			t.ExitTimeMs,
			t.ExitPrice,
			t.ExitReason,
			t.TP1Hit,
			t.TrailStage,
			t.PnLTP1,
			t.PnLRunner,
			t.Costs,
			t.TotalPnL,
			t.RRAchieved,
			t.CapitalAfter,
		))
	}

	return sb.String()
}
