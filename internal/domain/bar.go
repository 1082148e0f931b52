package domain

import (
	"fmt"
	"math"
	"time"
)

// Session labels the trading session a bar falls into (US/Eastern clock).
type Session string

// Session constants.
const (
	SessionUS     Session = "US"
	SessionEurope Session = "Europe"
	SessionAsia   Session = "Asia"
)

// FeatureRow is one 15-minute bar with every precomputed indicator and
// pattern flag the engine consumes. Rows are produced by the upstream
// feature pipeline and are immutable once built.
//
// The shape is fixed on purpose: a missing field is a construction error,
// not a silent default at first use.
type FeatureRow struct {
	TimestampMs int64 // Unix timestamp in milliseconds, strictly ascending

	Open  float64
	High  float64
	Low   float64
	Close float64

	// Trend flags (these five drive the confirmation count)
	PrimaryBull     bool // EMA9 > EMA21 on the base chart
	MTF1hBull       bool // 1H multi-timeframe alignment
	MTF4hBull       bool // 4H multi-timeframe alignment
	TrendFilterBull bool // Supertrend-style trend filter is bullish
	DailyBull       bool // daily close above daily EMA

	// Volume flags
	VolSpike     bool // volume >= 2.0x SMA20
	VolAbove     bool // volume >= 1.2x SMA20
	VolWeak      bool
	VolDeclining bool

	// Structure flags
	BreakoutWithVol bool // 20-bar breakout confirmed by above-average volume
	NearSupport     bool
	NearResist      bool
	ConsBreakout    bool // consolidation range breakout
	NearDailyLevel  bool

	// Momentum flags
	RSINeutral bool // RSI in [35, 65]
	RSIExtreme bool // RSI > 75 or < 25
	MACDBull   bool // MACD line above signal
	ADXStrong  bool // ADX > 20 with DI+ > DI-
	ADXWeak    bool // ADX < 20

	// Candlestick / event flags
	HammerConfirm bool
	MorningStar   bool
	BullEngulf    bool
	ShiftOverride bool // strong bullish reversal (shift candle or trend-filter buy flip)

	// Gates
	LongsBlocked bool // bearish shift block window is active
	EMASlopeBull bool

	// Time flags
	IsMaintenance bool // CME maintenance hour
	IsSessionEnd  bool // final bar of the session (EOD close point)

	// Numerics
	ATR             float64
	ATRPercentile   float64 // rolling percentile rank of ATR, NaN during warm-up
	TechnicalStop   float64 // min(10-bar low, trend-filter/ATR buffer stop)
	TrendFilterLine float64 // trend filter line value, used for stage-3 trailing

	Session   Session
	DayOfWeek time.Weekday // in US/Eastern
}

// Validate checks structural integrity of the row. NaN Close/ATR/score
// inputs are legal (warm-up bars); impossible price relationships and
// unknown sessions are not.
func (r *FeatureRow) Validate() error {
	if r == nil {
		return fmt.Errorf("feature row: nil row")
	}
	if r.TimestampMs <= 0 {
		return fmt.Errorf("feature row: non-positive timestamp %d", r.TimestampMs)
	}
	if !math.IsNaN(r.High) && !math.IsNaN(r.Low) && r.High < r.Low {
		return fmt.Errorf("feature row %d: high %.2f below low %.2f", r.TimestampMs, r.High, r.Low)
	}
	for name, v := range map[string]float64{"open": r.Open, "high": r.High, "low": r.Low, "close": r.Close} {
		if !math.IsNaN(v) && v <= 0 {
			return fmt.Errorf("feature row %d: non-positive %s %.2f", r.TimestampMs, name, v)
		}
	}
	switch r.Session {
	case SessionUS, SessionEurope, SessionAsia:
	default:
		return fmt.Errorf("feature row %d: unknown session %q", r.TimestampMs, r.Session)
	}
	if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
		return fmt.Errorf("feature row %d: invalid day of week %d", r.TimestampMs, int(r.DayOfWeek))
	}
	return nil
}

// Time returns the bar timestamp as time.Time (UTC).
func (r *FeatureRow) Time() time.Time {
	return time.UnixMilli(r.TimestampMs).UTC()
}
