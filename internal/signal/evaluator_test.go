package signal

import (
	"math"
	"testing"
	"time"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/scoring"
)

func passingRow() *domain.FeatureRow {
	return &domain.FeatureRow{
		TimestampMs:  1700000000000,
		Close:        20000,
		EMASlopeBull: true,
		Session:      domain.SessionUS,
		DayOfWeek:    time.Monday,
	}
}

func passingResult() scoring.ScoreResult {
	return scoring.ScoreResult{Score: 8.5, ConfirmCount: 3, EffectiveThreshold: 8.5}
}

func newEvaluator() *Evaluator {
	cfg := domain.DefaultConfig()
	return NewEvaluator(cfg, NewCooldownTracker(cfg.CooldownBars, cfg.CooldownPctMove))
}

func TestEvaluateAllCriteriaPass(t *testing.T) {
	e := newEvaluator()

	d := e.Evaluate(10, passingRow(), passingResult())
	if !d.Allowed {
		t.Fatalf("expected entry, rejected with %s", d.Reason)
	}
	if d.Score != 8.5 || d.Threshold != 8.5 || d.Session != domain.SessionUS {
		t.Errorf("decision must carry audit fields, got %+v", d)
	}
}

func TestEvaluateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.FeatureRow, *scoring.ScoreResult)
		reason string
	}{
		{"nan score", func(r *domain.FeatureRow, s *scoring.ScoreResult) {
			s.Score = math.NaN()
		}, ReasonNonFinite},
		{"nan threshold", func(r *domain.FeatureRow, s *scoring.ScoreResult) {
			s.EffectiveThreshold = math.NaN()
		}, ReasonNonFinite},
		{"longs blocked", func(r *domain.FeatureRow, s *scoring.ScoreResult) {
			r.LongsBlocked = true
		}, ReasonLongsBlocked},
		{"ema slope bearish", func(r *domain.FeatureRow, s *scoring.ScoreResult) {
			r.EMASlopeBull = false
		}, ReasonEMASlope},
		{"below threshold", func(r *domain.FeatureRow, s *scoring.ScoreResult) {
			s.Score = 8.4
		}, ReasonBelowThreshold},
		{"wednesday floor", func(r *domain.FeatureRow, s *scoring.ScoreResult) {
			r.DayOfWeek = time.Wednesday
		}, ReasonDayOfWeek},
		{"thursday floor", func(r *domain.FeatureRow, s *scoring.ScoreResult) {
			r.DayOfWeek = time.Thursday
		}, ReasonDayOfWeek},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEvaluator()
			row := passingRow()
			res := passingResult()
			tc.mutate(row, &res)

			d := e.Evaluate(10, row, res)
			if d.Allowed {
				t.Fatal("expected rejection")
			}
			if d.Reason != tc.reason {
				t.Errorf("expected reason %s, got %s", tc.reason, d.Reason)
			}
		})
	}
}

func TestEvaluateDayOfWeekFloorIsIndependentOfThreshold(t *testing.T) {
	e := newEvaluator()

	row := passingRow()
	row.DayOfWeek = time.Wednesday
	res := scoring.ScoreResult{Score: 8.9, EffectiveThreshold: 7.0}

	if d := e.Evaluate(10, row, res); d.Allowed {
		t.Error("8.9 on Wednesday must be rejected even above the dynamic threshold")
	}

	res.Score = 9.0
	if d := e.Evaluate(10, row, res); !d.Allowed {
		t.Errorf("9.0 on Wednesday should pass, got %s", d.Reason)
	}
}

func TestEvaluateEuropeFloor(t *testing.T) {
	e := newEvaluator()

	row := passingRow()
	row.Session = domain.SessionEurope
	res := scoring.ScoreResult{Score: 8.4, EffectiveThreshold: 8.0}

	d := e.Evaluate(10, row, res)
	if d.Allowed || d.Reason != ReasonEuropeFloor {
		t.Errorf("expected EUROPE_SCORE_FLOOR rejection, got %+v", d)
	}

	res.Score = 8.5
	if d := e.Evaluate(10, row, res); !d.Allowed {
		t.Errorf("8.5 in Europe should pass, got %s", d.Reason)
	}
}

func TestEvaluateCooldown(t *testing.T) {
	cfg := domain.DefaultConfig()
	cd := NewCooldownTracker(cfg.CooldownBars, cfg.CooldownPctMove)
	e := NewEvaluator(cfg, cd)

	cd.RecordExit(100, 20000)

	row := passingRow()
	row.Close = 20010

	d := e.Evaluate(104, row, passingResult())
	if d.Allowed || d.Reason != ReasonCooldown {
		t.Errorf("expected COOLDOWN rejection, got %+v", d)
	}

	// Shift override bypasses the cooldown but nothing else.
	row.ShiftOverride = true
	if d := e.Evaluate(101, row, passingResult()); !d.Allowed {
		t.Errorf("shift override should bypass cooldown, got %s", d.Reason)
	}
}
