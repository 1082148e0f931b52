package risk

import "nq-scalper-lab/internal/domain"

// CostModel maps the exit path to total transaction cost.
//
// Fills are counted as half-commissions: a trade that never reaches TP1
// closes both contracts together (4 half-fills, 2 slippage events); a trade
// that realizes TP1 adds a separate partial fill (6 half-fills, 4 slippage
// events). With the default $4.50 round trip and $5 tick this yields $19.00
// and $33.50.
type CostModel struct {
	commissionRT    float64
	slippagePerTick float64
}

// NewCostModel creates a cost model from the engine config.
func NewCostModel(cfg domain.EngineConfig) *CostModel {
	return &CostModel{
		commissionRT:    cfg.CommissionPerRoundTrip,
		slippagePerTick: cfg.SlippagePerTick,
	}
}

// Costs returns the total commission plus slippage for the exit path.
func (m *CostModel) Costs(tp1Hit bool) float64 {
	halfComm := m.commissionRT / 2

	halfFills := 4
	slipEvents := 2
	if tp1Hit {
		halfFills = 6
		slipEvents = 4
	}

	return float64(halfFills)*halfComm + float64(slipEvents)*m.slippagePerTick
}
