package idhash

import "testing"

func TestComputeTradeIDDeterministic(t *testing.T) {
	a := ComputeTradeID("NQ", 1, 1700000000000)
	b := ComputeTradeID("NQ", 1, 1700000000000)
	if a != b {
		t.Errorf("same inputs must hash identically: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestComputeTradeIDUniqueness(t *testing.T) {
	base := ComputeTradeID("NQ", 1, 1700000000000)

	if ComputeTradeID("ES", 1, 1700000000000) == base {
		t.Error("symbol must affect the hash")
	}
	if ComputeTradeID("NQ", 2, 1700000000000) == base {
		t.Error("trade number must affect the hash")
	}
	if ComputeTradeID("NQ", 1, 1700000000001) == base {
		t.Error("entry time must affect the hash")
	}
}
