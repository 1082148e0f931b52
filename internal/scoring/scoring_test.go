package scoring

import (
	"math"
	"testing"
	"time"

	"nq-scalper-lab/internal/domain"
)

func baseRow() *domain.FeatureRow {
	return &domain.FeatureRow{
		TimestampMs:     1700000000000,
		Open:            20000,
		High:            20010,
		Low:             19990,
		Close:           20005,
		ATR:             25,
		ATRPercentile:   50,
		TechnicalStop:   19980,
		TrendFilterLine: 19985,
		TrendFilterBull: true, // avoid the bearish-filter penalty in the neutral baseline
		Session:         domain.SessionEurope,
		DayOfWeek:       time.Monday,
	}
}

func TestScoreClampedToRange(t *testing.T) {
	e := NewEngine(domain.DefaultConfig())

	// All bullish flags on: raw sum exceeds 10, must clamp.
	row := baseRow()
	row.PrimaryBull = true
	row.MTF1hBull = true
	row.MTF4hBull = true
	row.DailyBull = true
	row.VolSpike = true
	row.BreakoutWithVol = true
	row.NearSupport = true
	row.ConsBreakout = true
	row.NearDailyLevel = true
	row.RSINeutral = true
	row.MACDBull = true
	row.ADXStrong = true
	row.HammerConfirm = true
	row.MorningStar = true
	row.BullEngulf = true
	row.Session = domain.SessionUS

	res := e.Score(row)
	if res.Score != 10.0 {
		t.Errorf("expected clamp at 10.0, got %.2f", res.Score)
	}

	// All penalties on: raw sum is negative, must clamp at 0.
	row = baseRow()
	row.TrendFilterBull = false
	row.VolWeak = true
	row.VolDeclining = true
	row.ADXWeak = true
	row.RSIExtreme = true
	row.LongsBlocked = true
	row.NearResist = true
	row.Session = domain.SessionAsia

	res = e.Score(row)
	if res.Score != 0.0 {
		t.Errorf("expected clamp at 0.0, got %.2f", res.Score)
	}
}

func TestVolumeSpikeTakesPriority(t *testing.T) {
	e := NewEngine(domain.DefaultConfig())

	row := baseRow()
	row.VolSpike = true
	row.VolAbove = true
	both := e.Score(row).Score

	row = baseRow()
	row.VolSpike = true
	spikeOnly := e.Score(row).Score

	if both != spikeOnly {
		t.Errorf("spike+above scored %.2f, spike alone %.2f; weights must not stack", both, spikeOnly)
	}

	row = baseRow()
	row.VolAbove = true
	aboveOnly := e.Score(row).Score
	if spikeOnly-aboveOnly != 1.0 {
		t.Errorf("spike should add 2.5 vs above 1.5, diff = %.2f", spikeOnly-aboveOnly)
	}
}

func TestConfirmCount(t *testing.T) {
	e := NewEngine(domain.DefaultConfig())

	row := baseRow()
	row.TrendFilterBull = false
	if got := e.Score(row).ConfirmCount; got != 0 {
		t.Errorf("expected 0 confirms, got %d", got)
	}

	row.PrimaryBull = true
	row.MTF4hBull = true
	if got := e.Score(row).ConfirmCount; got != 2 {
		t.Errorf("expected 2 confirms, got %d", got)
	}

	row.MTF1hBull = true
	row.TrendFilterBull = true
	row.DailyBull = true
	if got := e.Score(row).ConfirmCount; got != 5 {
		t.Errorf("expected 5 confirms, got %d", got)
	}
}

func TestEffectiveThresholdTable(t *testing.T) {
	e := NewEngine(domain.DefaultConfig())

	// Europe session penalty +1.0, ATR percentile 50 -> no adjustment.
	cases := []struct {
		confirms []bool // which of the five trend flags to set
		want     float64
	}{
		{[]bool{false, false, false, false, false}, 9.0 + 1.0},
		{[]bool{true, false, false, false, false}, 8.5 + 1.0},
		{[]bool{true, true, false, false, false}, 8.0 + 1.0},
		{[]bool{true, true, true, false, false}, 7.5 + 1.0},
		{[]bool{true, true, true, true, false}, 7.0 + 1.0},
		{[]bool{true, true, true, true, true}, 7.0 + 1.0}, // 4+ shares the base
	}

	for i, tc := range cases {
		row := baseRow()
		row.PrimaryBull = tc.confirms[0]
		row.MTF1hBull = tc.confirms[1]
		row.MTF4hBull = tc.confirms[2]
		row.TrendFilterBull = tc.confirms[3]
		row.DailyBull = tc.confirms[4]

		got := e.Score(row).EffectiveThreshold
		if got != tc.want {
			t.Errorf("case %d: expected threshold %.2f, got %.2f", i, tc.want, got)
		}
	}
}

func TestSessionPenalty(t *testing.T) {
	e := NewEngine(domain.DefaultConfig())

	row := baseRow()
	row.Session = domain.SessionAsia
	asia := e.Score(row).EffectiveThreshold

	row.Session = domain.SessionUS
	us := e.Score(row).EffectiveThreshold

	if asia-us != 1.0 {
		t.Errorf("Asia penalty should exceed US by 1.0, got %.2f", asia-us)
	}
}

func TestATRAdjustmentBands(t *testing.T) {
	e := NewEngine(domain.DefaultConfig())

	cases := []struct {
		pctile float64
		adj    float64
	}{
		{90, 0.5},
		{81, 0.5},
		{80, 0.25}, // boundary belongs to the elevated band
		{70, 0.25},
		{65, 0}, // boundary belongs to normal
		{50, 0},
		{20, 0}, // boundary belongs to normal
		{10, -0.25},
		{math.NaN(), 0},
	}

	for _, tc := range cases {
		row := baseRow()
		row.ATRPercentile = 50
		base := e.Score(row).EffectiveThreshold

		row.ATRPercentile = tc.pctile
		got := e.Score(row).EffectiveThreshold

		if got-base != tc.adj {
			t.Errorf("pctile %.0f: expected adjustment %.2f, got %.2f", tc.pctile, tc.adj, got-base)
		}
	}
}

func TestThresholdIsPureFunctionOfInputs(t *testing.T) {
	e := NewEngine(domain.DefaultConfig())
	row := baseRow()
	row.PrimaryBull = true
	row.VolAbove = true

	first := e.Score(row)
	for i := 0; i < 10; i++ {
		if got := e.Score(row); got != first {
			t.Fatalf("scoring is not deterministic: %+v != %+v", got, first)
		}
	}
}
