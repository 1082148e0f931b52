package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, run_id, trade_num,
	entry_time_ms, entry_price, stop_loss, sl_distance, tp1_price,
	entry_score, entry_session,
	exit_time_ms, exit_price, exit_reason, tp1_hit, trail_stage,
	pnl_tp1, pnl_runner, costs, total_pnl, rr_achieved, capital_after
`

const insertTradeQuery = `
	INSERT INTO trades (` + tradeColumns + `
	) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7, $8,
		$9, $10,
		$11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21
	)
`

func tradeArgs(t *domain.Trade) []any {
	return []any{
		t.TradeID, t.RunID, t.TradeNum,
		t.EntryTimeMs, t.EntryPrice, t.StopLoss, t.SLDistance, t.TP1Price,
		t.EntryScore, string(t.EntrySession),
		t.ExitTimeMs, t.ExitPrice, t.ExitReason, t.TP1Hit, t.TrailStage,
		t.PnLTP1, t.PnLRunner, t.Costs, t.TotalPnL, t.RRAchieved, t.CapitalAfter,
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if (run_id, trade_id) exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	_, err := s.pool.Exec(ctx, insertTradeQuery, tradeArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if _, err := tx.Exec(ctx, insertTradeQuery, tradeArgs(t)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all trades of a run, ordered by trade_num ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE run_id = $1
		ORDER BY trade_num ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetAll retrieves all trades, ordered by entry time ASC, trade_id ASC.
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		ORDER BY entry_time_ms ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade
		var session string

		err := rows.Scan(
			&t.TradeID, &t.RunID, &t.TradeNum,
			&t.EntryTimeMs, &t.EntryPrice, &t.StopLoss, &t.SLDistance, &t.TP1Price,
			&t.EntryScore, &session,
			&t.ExitTimeMs, &t.ExitPrice, &t.ExitReason, &t.TP1Hit, &t.TrailStage,
			&t.PnLTP1, &t.PnLRunner, &t.Costs, &t.TotalPnL, &t.RRAchieved, &t.CapitalAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		t.EntrySession = domain.Session(session)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
