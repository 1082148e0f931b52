package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/observability"
)

// LiveFeedConfig configures the WebSocket bar stream.
type LiveFeedConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the per-message read deadline.
	ReadTimeout time.Duration
	// Buffer is the row channel capacity.
	Buffer int
}

// DefaultLiveFeedConfig returns default stream settings.
func DefaultLiveFeedConfig() LiveFeedConfig {
	return LiveFeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		Buffer:            64,
	}
}

// LiveFeed streams feature-row frames from a WebSocket endpoint. It is the
// live-deployment counterpart of the batch sources: bars arrive as JSON
// frames and are handed to the consumer in arrival order. Out-of-order
// frames are dropped and counted rather than delivered.
type LiveFeed struct {
	endpoint string
	symbol   string
	config   LiveFeedConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	rows    chan *domain.FeatureRow
	dropped atomic.Uint64
	lastTs  atomic.Int64

	done chan struct{}
	wg   sync.WaitGroup
}

// barFrame is the wire shape of one bar. Numeric fields are pointers so an
// absent value maps to NaN instead of zero.
type barFrame struct {
	TimestampMs int64    `json:"timestamp_ms"`
	Open        *float64 `json:"open"`
	High        *float64 `json:"high"`
	Low         *float64 `json:"low"`
	Close       *float64 `json:"close"`

	PrimaryBull     bool `json:"primary_bull"`
	MTF1hBull       bool `json:"mtf1h_bull"`
	MTF4hBull       bool `json:"mtf4h_bull"`
	TrendFilterBull bool `json:"trend_filter_bull"`
	DailyBull       bool `json:"daily_bull"`

	VolSpike     bool `json:"vol_spike"`
	VolAbove     bool `json:"vol_above"`
	VolWeak      bool `json:"vol_weak"`
	VolDeclining bool `json:"vol_declining"`

	BreakoutWithVol bool `json:"breakout_with_vol"`
	NearSupport     bool `json:"near_support"`
	NearResist      bool `json:"near_resist"`
	ConsBreakout    bool `json:"cons_breakout"`
	NearDailyLevel  bool `json:"near_daily_level"`

	RSINeutral bool `json:"rsi_neutral"`
	RSIExtreme bool `json:"rsi_extreme"`
	MACDBull   bool `json:"macd_bull"`
	ADXStrong  bool `json:"adx_strong"`
	ADXWeak    bool `json:"adx_weak"`

	HammerConfirm bool `json:"hammer_confirm"`
	MorningStar   bool `json:"morning_star"`
	BullEngulf    bool `json:"bull_engulf"`
	ShiftOverride bool `json:"shift_override"`

	LongsBlocked bool `json:"longs_blocked"`
	EMASlopeBull bool `json:"ema_slope_bull"`

	IsMaintenance bool `json:"is_maintenance"`
	IsSessionEnd  bool `json:"is_session_end"`

	ATR             *float64 `json:"atr"`
	ATRPercentile   *float64 `json:"atr_percentile"`
	TechnicalStop   *float64 `json:"technical_stop"`
	TrendFilterLine *float64 `json:"trend_filter_line"`

	Session   string `json:"session"`
	DayOfWeek int    `json:"day_of_week"`
}

// NewLiveFeed connects to the endpoint and starts streaming bars for the
// given symbol.
func NewLiveFeed(ctx context.Context, endpoint, symbol string, config *LiveFeedConfig) (*LiveFeed, error) {
	cfg := DefaultLiveFeedConfig()
	if config != nil {
		cfg = *config
	}

	f := &LiveFeed{
		endpoint: endpoint,
		symbol:   symbol,
		config:   cfg,
		logger:   log.New(os.Stderr, "[livefeed] ", log.LstdFlags),
		rows:     make(chan *domain.FeatureRow, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(2)
	go f.readLoop()
	go f.pingLoop()

	return f, nil
}

// Rows returns the channel of streamed feature rows. It is closed when the
// feed shuts down.
func (f *LiveFeed) Rows() <-chan *domain.FeatureRow {
	return f.rows
}

// Dropped returns the number of frames discarded for bad ordering or
// failed validation.
func (f *LiveFeed) Dropped() uint64 {
	return f.dropped.Load()
}

// Close shuts the feed down and closes the row channel.
func (f *LiveFeed) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.rows)
	return nil
}

func (f *LiveFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	sub := map[string]string{"op": "subscribe", "symbol": f.symbol}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe %s: %w", f.symbol, err)
	}

	if f.conn != nil {
		f.conn.Close()
	}
	f.conn = conn
	return nil
}

func (f *LiveFeed) readLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return
		default:
		}

		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			if !f.reconnect() {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}
			f.logger.Printf("read error: %v, reconnecting", err)
			if !f.reconnect() {
				return
			}
			continue
		}

		f.handleFrame(data)
	}
}

func (f *LiveFeed) handleFrame(data []byte) {
	var frame barFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		f.logger.Printf("drop undecodable frame: %v", err)
		f.drop("undecodable")
		return
	}

	row := frame.toRow()
	if err := row.Validate(); err != nil {
		f.logger.Printf("drop invalid frame: %v", err)
		f.drop("invalid")
		return
	}
	if row.TimestampMs <= f.lastTs.Load() {
		f.logger.Printf("drop out-of-order frame ts=%d", row.TimestampMs)
		f.drop("out_of_order")
		return
	}
	f.lastTs.Store(row.TimestampMs)

	select {
	case f.rows <- row:
	case <-f.done:
	}
}

func (f *LiveFeed) drop(reason string) {
	f.dropped.Add(1)
	observability.RecordRowDropped(reason)
}

func (f *LiveFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			conn := f.conn
			f.connMu.Unlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				f.logger.Printf("ping failed: %v", err)
			}
		}
	}
}

// reconnect retries with exponential backoff until it succeeds or the feed
// is closed. The subscription is re-sent on every new connection.
func (f *LiveFeed) reconnect() bool {
	delay := f.config.ReconnectDelay

	for {
		select {
		case <-f.done:
			return false
		case <-time.After(delay):
		}

		if err := f.connect(context.Background()); err != nil {
			f.logger.Printf("reconnect failed: %v", err)
			delay *= 2
			if delay > f.config.MaxReconnectDelay {
				delay = f.config.MaxReconnectDelay
			}
			continue
		}

		f.logger.Printf("reconnected to %s", f.endpoint)
		observability.DefaultMetrics.FeedReconnects.Inc()
		return true
	}
}

func (b *barFrame) toRow() *domain.FeatureRow {
	deref := func(p *float64) float64 {
		if p == nil {
			return math.NaN()
		}
		return *p
	}

	return &domain.FeatureRow{
		TimestampMs: b.TimestampMs,
		Open:        deref(b.Open),
		High:        deref(b.High),
		Low:         deref(b.Low),
		Close:       deref(b.Close),

		PrimaryBull:     b.PrimaryBull,
		MTF1hBull:       b.MTF1hBull,
		MTF4hBull:       b.MTF4hBull,
		TrendFilterBull: b.TrendFilterBull,
		DailyBull:       b.DailyBull,

		VolSpike:     b.VolSpike,
		VolAbove:     b.VolAbove,
		VolWeak:      b.VolWeak,
		VolDeclining: b.VolDeclining,

		BreakoutWithVol: b.BreakoutWithVol,
		NearSupport:     b.NearSupport,
		NearResist:      b.NearResist,
		ConsBreakout:    b.ConsBreakout,
		NearDailyLevel:  b.NearDailyLevel,

		RSINeutral: b.RSINeutral,
		RSIExtreme: b.RSIExtreme,
		MACDBull:   b.MACDBull,
		ADXStrong:  b.ADXStrong,
		ADXWeak:    b.ADXWeak,

		HammerConfirm: b.HammerConfirm,
		MorningStar:   b.MorningStar,
		BullEngulf:    b.BullEngulf,
		ShiftOverride: b.ShiftOverride,

		LongsBlocked: b.LongsBlocked,
		EMASlopeBull: b.EMASlopeBull,

		IsMaintenance: b.IsMaintenance,
		IsSessionEnd:  b.IsSessionEnd,

		ATR:             deref(b.ATR),
		ATRPercentile:   deref(b.ATRPercentile),
		TechnicalStop:   deref(b.TechnicalStop),
		TrendFilterLine: deref(b.TrendFilterLine),

		Session:   domain.Session(b.Session),
		DayOfWeek: time.Weekday(b.DayOfWeek),
	}
}
