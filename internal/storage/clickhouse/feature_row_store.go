package clickhouse

import (
	"context"
	"fmt"
	"time"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/storage"
)

// FeatureRowStore implements storage.FeatureRowStore using ClickHouse.
type FeatureRowStore struct {
	conn *Conn
}

// NewFeatureRowStore creates a new FeatureRowStore.
func NewFeatureRowStore(conn *Conn) *FeatureRowStore {
	return &FeatureRowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureRowStore = (*FeatureRowStore)(nil)

const featureRowColumns = `
	symbol, timestamp_ms,
	open, high, low, close,
	primary_bull, mtf_1h_bull, mtf_4h_bull, trend_filter_bull, daily_bull,
	vol_spike, vol_above, vol_weak, vol_declining,
	breakout_with_vol, near_support, near_resist, cons_breakout, near_daily_level,
	rsi_neutral, rsi_extreme, macd_bull, adx_strong, adx_weak,
	hammer_confirm, morning_star, bull_engulf, shift_override,
	longs_blocked, ema_slope_bull,
	is_maintenance, is_session_end,
	atr, atr_percentile, technical_stop, trend_filter_line,
	session, day_of_week
`

// InsertBulk adds multiple rows for a symbol. Fails the entire batch on
// a duplicate (symbol, timestamp_ms).
func (s *FeatureRowStore) InsertBulk(ctx context.Context, symbol string, rows []*domain.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[int64]struct{})
	for _, r := range rows {
		if _, exists := seen[r.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.TimestampMs] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range rows {
		exists, err := s.exists(ctx, symbol, r.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO feature_rows (`+featureRowColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			symbol, r.TimestampMs,
			r.Open, r.High, r.Low, r.Close,
			b2u(r.PrimaryBull), b2u(r.MTF1hBull), b2u(r.MTF4hBull), b2u(r.TrendFilterBull), b2u(r.DailyBull),
			b2u(r.VolSpike), b2u(r.VolAbove), b2u(r.VolWeak), b2u(r.VolDeclining),
			b2u(r.BreakoutWithVol), b2u(r.NearSupport), b2u(r.NearResist), b2u(r.ConsBreakout), b2u(r.NearDailyLevel),
			b2u(r.RSINeutral), b2u(r.RSIExtreme), b2u(r.MACDBull), b2u(r.ADXStrong), b2u(r.ADXWeak),
			b2u(r.HammerConfirm), b2u(r.MorningStar), b2u(r.BullEngulf), b2u(r.ShiftOverride),
			b2u(r.LongsBlocked), b2u(r.EMASlopeBull),
			b2u(r.IsMaintenance), b2u(r.IsSessionEnd),
			r.ATR, r.ATRPercentile, r.TechnicalStop, r.TrendFilterLine,
			string(r.Session), uint8(r.DayOfWeek),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
func (s *FeatureRowStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.FeatureRow, error) {
	query := `
		SELECT ` + featureRowColumns + `
		FROM feature_rows
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// GetByTimeRange retrieves rows for a symbol within [start, end] (inclusive).
func (s *FeatureRowStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.FeatureRow, error) {
	query := `
		SELECT ` + featureRowColumns + `
		FROM feature_rows
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// exists checks if a row with the given key exists.
func (s *FeatureRowStore) exists(ctx context.Context, symbol string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM feature_rows
		WHERE symbol = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, timestampMs).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows abstracts driver.Rows for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanFeatureRows scans multiple rows.
func scanFeatureRows(rows chRows) ([]*domain.FeatureRow, error) {
	var out []*domain.FeatureRow

	for rows.Next() {
		var r domain.FeatureRow
		var symbol, session string
		var dayOfWeek uint8
		var flags [27]uint8

		err := rows.Scan(
			&symbol, &r.TimestampMs,
			&r.Open, &r.High, &r.Low, &r.Close,
			&flags[0], &flags[1], &flags[2], &flags[3], &flags[4],
			&flags[5], &flags[6], &flags[7], &flags[8],
			&flags[9], &flags[10], &flags[11], &flags[12], &flags[13],
			&flags[14], &flags[15], &flags[16], &flags[17], &flags[18],
			&flags[19], &flags[20], &flags[21], &flags[22],
			&flags[23], &flags[24],
			&flags[25], &flags[26],
			&r.ATR, &r.ATRPercentile, &r.TechnicalStop, &r.TrendFilterLine,
			&session, &dayOfWeek,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}

		r.PrimaryBull = flags[0] != 0
		r.MTF1hBull = flags[1] != 0
		r.MTF4hBull = flags[2] != 0
		r.TrendFilterBull = flags[3] != 0
		r.DailyBull = flags[4] != 0
		r.VolSpike = flags[5] != 0
		r.VolAbove = flags[6] != 0
		r.VolWeak = flags[7] != 0
		r.VolDeclining = flags[8] != 0
		r.BreakoutWithVol = flags[9] != 0
		r.NearSupport = flags[10] != 0
		r.NearResist = flags[11] != 0
		r.ConsBreakout = flags[12] != 0
		r.NearDailyLevel = flags[13] != 0
		r.RSINeutral = flags[14] != 0
		r.RSIExtreme = flags[15] != 0
		r.MACDBull = flags[16] != 0
		r.ADXStrong = flags[17] != 0
		r.ADXWeak = flags[18] != 0
		r.HammerConfirm = flags[19] != 0
		r.MorningStar = flags[20] != 0
		r.BullEngulf = flags[21] != 0
		r.ShiftOverride = flags[22] != 0
		r.LongsBlocked = flags[23] != 0
		r.EMASlopeBull = flags[24] != 0
		r.IsMaintenance = flags[25] != 0
		r.IsSessionEnd = flags[26] != 0
		r.Session = domain.Session(session)
		r.DayOfWeek = time.Weekday(dayOfWeek)

		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}

	return out, nil
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
