package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"nq-scalper-lab/internal/domain"
)

// Columns a feature-row CSV must carry. Header order does not matter and
// matching is case-insensitive; a missing column fails the whole load.
var csvColumns = []string{
	"timestamp_ms", "open", "high", "low", "close",
	"primary_bull", "mtf1h_bull", "mtf4h_bull", "trend_filter_bull", "daily_bull",
	"vol_spike", "vol_above", "vol_weak", "vol_declining",
	"breakout_with_vol", "near_support", "near_resist", "cons_breakout", "near_daily_level",
	"rsi_neutral", "rsi_extreme", "macd_bull", "adx_strong", "adx_weak",
	"hammer_confirm", "morning_star", "bull_engulf", "shift_override",
	"longs_blocked", "ema_slope_bull", "is_maintenance", "is_session_end",
	"atr", "atr_percentile", "technical_stop", "trend_filter_line",
	"session", "day_of_week",
}

// CSVFeed loads feature rows from a CSV export of the feature pipeline.
type CSVFeed struct {
	path string
}

// NewCSVFeed creates a CSV-backed feed.
func NewCSVFeed(path string) *CSVFeed {
	return &CSVFeed{path: path}
}

// Load implements Source.
func (f *CSVFeed) Load(_ context.Context) ([]*domain.FeatureRow, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open feature csv: %w", err)
	}
	defer file.Close()

	rows, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return rows, nil
}

var _ Source = (*CSVFeed)(nil)

// ParseCSV reads feature rows from r and validates their ordering.
func ParseCSV(r io.Reader) ([]*domain.FeatureRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	var rows []*domain.FeatureRow
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line+1, err)
		}
		line++

		row, err := parseRecord(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	if err := ValidateOrdering(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseRecord(rec []string, idx map[string]int) (*domain.FeatureRow, error) {
	get := func(col string) (string, error) {
		i := idx[col]
		if i >= len(rec) {
			return "", fmt.Errorf("missing field %q", col)
		}
		return strings.TrimSpace(rec[i]), nil
	}

	var firstErr error
	num := func(col string) float64 {
		s, err := get(col)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return math.NaN()
		}
		if s == "" || strings.EqualFold(s, "nan") {
			return math.NaN()
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("field %q: %w", col, err)
		}
		return v
	}
	flag := func(col string) bool {
		s, err := get(col)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return false
		}
		switch strings.ToLower(s) {
		case "1", "true", "t", "yes":
			return true
		case "", "0", "false", "f", "no":
			return false
		default:
			if firstErr == nil {
				firstErr = fmt.Errorf("field %q: invalid boolean %q", col, s)
			}
			return false
		}
	}

	tsStr, err := get("timestamp_ms")
	if err != nil {
		return nil, err
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("field timestamp_ms: %w", err)
	}

	sessStr, err := get("session")
	if err != nil {
		return nil, err
	}
	dowStr, err := get("day_of_week")
	if err != nil {
		return nil, err
	}
	dow, err := parseWeekday(dowStr)
	if err != nil {
		return nil, err
	}

	row := &domain.FeatureRow{
		TimestampMs: ts,
		Open:        num("open"),
		High:        num("high"),
		Low:         num("low"),
		Close:       num("close"),

		PrimaryBull:     flag("primary_bull"),
		MTF1hBull:       flag("mtf1h_bull"),
		MTF4hBull:       flag("mtf4h_bull"),
		TrendFilterBull: flag("trend_filter_bull"),
		DailyBull:       flag("daily_bull"),

		VolSpike:     flag("vol_spike"),
		VolAbove:     flag("vol_above"),
		VolWeak:      flag("vol_weak"),
		VolDeclining: flag("vol_declining"),

		BreakoutWithVol: flag("breakout_with_vol"),
		NearSupport:     flag("near_support"),
		NearResist:      flag("near_resist"),
		ConsBreakout:    flag("cons_breakout"),
		NearDailyLevel:  flag("near_daily_level"),

		RSINeutral: flag("rsi_neutral"),
		RSIExtreme: flag("rsi_extreme"),
		MACDBull:   flag("macd_bull"),
		ADXStrong:  flag("adx_strong"),
		ADXWeak:    flag("adx_weak"),

		HammerConfirm: flag("hammer_confirm"),
		MorningStar:   flag("morning_star"),
		BullEngulf:    flag("bull_engulf"),
		ShiftOverride: flag("shift_override"),

		LongsBlocked: flag("longs_blocked"),
		EMASlopeBull: flag("ema_slope_bull"),

		IsMaintenance: flag("is_maintenance"),
		IsSessionEnd:  flag("is_session_end"),

		ATR:             num("atr"),
		ATRPercentile:   num("atr_percentile"),
		TechnicalStop:   num("technical_stop"),
		TrendFilterLine: num("trend_filter_line"),

		Session:   domain.Session(sessStr),
		DayOfWeek: dow,
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := row.Validate(); err != nil {
		return nil, err
	}
	return row, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("field day_of_week: out of range %d", n)
		}
		return time.Weekday(n), nil
	}
	switch strings.ToLower(s) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("field day_of_week: invalid value %q", s)
}
