package domain

// Trade is one completed round trip, appended to the ledger when the
// position closes and never mutated afterwards.
type Trade struct {
	TradeID  string // deterministic hash
	RunID    string // backtest run this trade belongs to
	TradeNum int    // 1-based sequence number within the run

	// Entry
	EntryTimeMs  int64
	EntryPrice   float64
	StopLoss     float64
	SLDistance   float64 // points
	TP1Price     float64
	EntryScore   float64
	EntrySession Session

	// Exit
	ExitTimeMs int64
	ExitPrice  float64
	ExitReason string
	TP1Hit     bool
	TrailStage int // trail stage at exit, 0 when TP1 never hit

	// P&L (dollars)
	PnLTP1       float64
	PnLRunner    float64
	Costs        float64
	TotalPnL     float64
	RRAchieved   float64 // (exit - entry) / sl_distance
	CapitalAfter float64
}

// Exit reason codes.
const (
	ExitReasonFullStop = "FULL_STOP"
	ExitReasonTrailS1  = "TRAIL_S1"
	ExitReasonTrailS2  = "TRAIL_S2"
	ExitReasonTrailS3  = "TRAIL_S3"
	ExitReasonEODClose = "EOD_CLOSE"
)
