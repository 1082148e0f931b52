package domain

// Position is the single open long. At most one exists at any time; the
// engine converts it into a Trade on close.
type Position struct {
	EntryBar     int
	EntryTimeMs  int64
	EntryPrice   float64
	StopLoss     float64
	SLDistance   float64
	TP1Price     float64
	EntryScore   float64
	EntrySession Session

	TP1Hit    bool
	Contracts int
}
