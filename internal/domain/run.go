package domain

// BacktestRun is the persisted metadata for one engine run.
type BacktestRun struct {
	RunID  string // uuid
	Symbol string

	StartedAtMs  int64
	BarsTotal    int
	BarsSkipped  int // maintenance/Saturday/NaN bars
	SignalsSeen  int // entry decisions evaluated true
	RejectedRows int // rows that failed validation or the entry plan

	TradeCount   int
	FinalCapital float64
}
