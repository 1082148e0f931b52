package domain

// EngineConfig carries every tunable parameter of the backtest engine.
// Nothing in the scoring, signal, risk, or position logic hardcodes these;
// the validated defaults live in DefaultConfig.
type EngineConfig struct {
	// Contract spec
	PointValue float64 // dollars per point
	TickValue  float64 // dollars per tick

	// Risk
	MaxRiskPerContract float64 // dollars; MaxSLPoints = MaxRiskPerContract / PointValue
	MaxSLPoints        float64
	RRRatioTP1         float64
	Contracts          int

	// Account
	InitialCapital float64

	// Costs
	CommissionPerRoundTrip float64 // per contract
	SlippagePerTick        float64 // dollars per slippage event

	// Cooldown
	CooldownBars    int
	CooldownPctMove float64 // fraction, 0.0025 = 0.25%

	// Thresholds. ConfirmThresholds is indexed by min(confirms, 4).
	ConfirmThresholds      [5]float64
	SessionPenalty         map[Session]float64
	DefaultSessionPenalty  float64
	ATRAdjustments         ATRBands
	EventWeights           EventWeights
	DayOfWeekOverrideScore float64 // hard floor on Wednesday and Thursday
	EuropeScoreFloor       float64

	// Trailing stop
	TrailStage2Mult   float64 // stage 2 at profit >= sl * mult
	TrailStage3Mult   float64 // stage 3 at profit >= sl * mult
	TrailStage2Offset float64 // stage-2 trail = entry + sl * offset
	TrailATRMult      float64 // stage-3 ATR trail distance

	// Loop
	WarmUpBars  int
	UseEODClose bool
}

// ATRBands maps ATR percentile to a threshold adjustment.
type ATRBands struct {
	HighPct     float64 // percentile above which HighAdj applies
	HighAdj     float64
	ElevatedPct float64
	ElevatedAdj float64
	LowPct      float64 // percentile below which LowAdj applies
	LowAdj      float64
}

// EventWeights are the candlestick-event score contributions.
type EventWeights struct {
	HammerConfirm float64
	MorningStar   float64
	BullEngulf    float64
}

// DefaultConfig returns the validated parameter set.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		PointValue: 20.0,
		TickValue:  5.0,

		MaxRiskPerContract: 800.0,
		MaxSLPoints:        40.0,
		RRRatioTP1:         1.5,
		Contracts:          2,

		InitialCapital: 100_000.0,

		CommissionPerRoundTrip: 4.50,
		SlippagePerTick:        5.0,

		CooldownBars:    8,
		CooldownPctMove: 0.0025,

		ConfirmThresholds: [5]float64{9.0, 8.5, 8.0, 7.5, 7.0},
		SessionPenalty: map[Session]float64{
			SessionUS:     1.0,
			SessionEurope: 1.0,
			SessionAsia:   2.0,
		},
		DefaultSessionPenalty: 1.0,
		ATRAdjustments: ATRBands{
			HighPct:     80,
			HighAdj:     0.5,
			ElevatedPct: 65,
			ElevatedAdj: 0.25,
			LowPct:      20,
			LowAdj:      -0.25,
		},
		EventWeights: EventWeights{
			HammerConfirm: 0.7,
			MorningStar:   0.7,
			BullEngulf:    0.5,
		},
		DayOfWeekOverrideScore: 9.0,
		EuropeScoreFloor:       8.5,

		TrailStage2Mult:   1.5,
		TrailStage3Mult:   2.0,
		TrailStage2Offset: 0.5,
		TrailATRMult:      2.0,

		WarmUpBars:  300,
		UseEODClose: false,
	}
}
