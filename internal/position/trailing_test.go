package position

import (
	"math"
	"testing"

	"nq-scalper-lab/internal/domain"
)

func newTrail() *TrailingStop {
	return NewTrailingStop(20000, 30, domain.DefaultConfig())
}

func TestTrailStartsAtBreakeven(t *testing.T) {
	tr := newTrail()
	if tr.Stage() != 1 {
		t.Errorf("expected stage 1, got %d", tr.Stage())
	}
	if tr.TrailStop() != 20000 {
		t.Errorf("expected trail at entry, got %.2f", tr.TrailStop())
	}
}

func TestStageTwoUpgrade(t *testing.T) {
	tr := newTrail()

	// Profit 44 < 45: still stage 1.
	tr.Update(20044, 25, math.NaN())
	if tr.Stage() != 1 {
		t.Errorf("profit 44 must not upgrade, stage %d", tr.Stage())
	}

	// Profit 45 = sl*1.5: stage 2, trail = entry + sl*0.5 = 20015.
	tr.Update(20045, 25, math.NaN())
	if tr.Stage() != 2 {
		t.Errorf("expected stage 2, got %d", tr.Stage())
	}
	if tr.TrailStop() != 20015 {
		t.Errorf("expected stage-2 trail 20015, got %.2f", tr.TrailStop())
	}
}

func TestStageThreeUpgrade(t *testing.T) {
	tr := newTrail()
	tr.Update(20045, 25, math.NaN()) // stage 2

	// Profit 59 < 60: still stage 2.
	tr.Update(20059, 25, math.NaN())
	if tr.Stage() != 2 {
		t.Errorf("profit 59 must not upgrade, stage %d", tr.Stage())
	}

	// Profit 60 = sl*2.0: stage 3, ATR trail = 20060 - 50 = 20010,
	// but the trail must never drop below the stage-2 level.
	tr.Update(20060, 25, math.NaN())
	if tr.Stage() != 3 {
		t.Errorf("expected stage 3, got %d", tr.Stage())
	}
	if tr.TrailStop() != 20015 {
		t.Errorf("stage-3 trail must not report below 20015, got %.2f", tr.TrailStop())
	}
}

func TestSameBarCascadeToStageThree(t *testing.T) {
	tr := newTrail()

	// One bar clears both gates: 1 -> 2 -> 3 within the same update.
	tr.Update(20100, 10, math.NaN())
	if tr.Stage() != 3 {
		t.Errorf("expected same-bar cascade to stage 3, got %d", tr.Stage())
	}
	// ATR trail = 20100 - 20 = 20080.
	if tr.TrailStop() != 20080 {
		t.Errorf("expected trail 20080, got %.2f", tr.TrailStop())
	}
}

func TestSameBarCascadeKeepsStageTwoLevel(t *testing.T) {
	tr := newTrail()

	// Profit 60 clears both gates at once, but the wide ATR puts the
	// stage-3 candidate (20060 - 50 = 20010) below the stage-2 level.
	// The 1 -> 2 upgrade must lock in entry + sl*0.5 = 20015 first.
	tr.Update(20060, 25, math.NaN())
	if tr.Stage() != 3 {
		t.Fatalf("expected same-bar cascade to stage 3, got %d", tr.Stage())
	}
	if tr.TrailStop() != 20015 {
		t.Errorf("stage-3 trail must not report below 20015, got %.2f", tr.TrailStop())
	}
}

func TestTrendFilterLineFloorsStageThree(t *testing.T) {
	tr := newTrail()

	// ATR trail would be 20100 - 2*30 = 20040; line at 20070 wins.
	tr.Update(20100, 30, 20070)
	if tr.Stage() != 3 {
		t.Fatalf("expected stage 3, got %d", tr.Stage())
	}
	if tr.TrailStop() != 20070 {
		t.Errorf("expected line-floored trail 20070, got %.2f", tr.TrailStop())
	}
}

func TestTrailOnlyRatchetsUp(t *testing.T) {
	tr := newTrail()
	tr.Update(20100, 10, math.NaN()) // stage 3, trail 20080

	// Close falls back: candidate 20050 - 20 = 20030 < 20080, trail holds.
	tr.Update(20050, 10, math.NaN())
	if tr.TrailStop() != 20080 {
		t.Errorf("trail must not decrease, got %.2f", tr.TrailStop())
	}

	// Stage never decreases either.
	if tr.Stage() != 3 {
		t.Errorf("stage must not decrease, got %d", tr.Stage())
	}
}

func TestTrailNeverBelowEntry(t *testing.T) {
	tr := newTrail()

	// Deep stage-3 pullback would compute a trail below entry.
	tr.Update(20100, 10, math.NaN()) // stage 3
	tr.Update(20001, 200, math.NaN())
	if tr.TrailStop() < 20000 {
		t.Errorf("trail below entry: %.2f", tr.TrailStop())
	}
}

func TestNaNATRSkipsStageThreeRecompute(t *testing.T) {
	tr := newTrail()
	tr.Update(20100, 10, math.NaN()) // stage 3, trail 20080

	tr.Update(20200, math.NaN(), math.NaN())
	if tr.TrailStop() != 20080 {
		t.Errorf("NaN ATR must leave the trail unchanged, got %.2f", tr.TrailStop())
	}
}

func TestIsStopped(t *testing.T) {
	tr := newTrail()

	if tr.IsStopped(20000.25) {
		t.Error("low above trail must not stop")
	}
	if !tr.IsStopped(20000) {
		t.Error("low touching trail must stop")
	}
	if !tr.IsStopped(19990) {
		t.Error("low below trail must stop")
	}
}
