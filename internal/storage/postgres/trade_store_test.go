package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/storage"
)

// createTestRun inserts a parent run for trades to reference.
func createTestRun(t *testing.T, ctx context.Context, pool *Pool, runID string) string {
	t.Helper()

	store := NewRunStore(pool)
	err := store.Insert(ctx, &domain.BacktestRun{
		RunID:        runID,
		Symbol:       "NQ",
		StartedAtMs:  1700000000000,
		BarsTotal:    1000,
		BarsSkipped:  12,
		SignalsSeen:  40,
		TradeCount:   2,
		FinalCapital: 101_500.0,
	})
	require.NoError(t, err)
	return runID
}

func createTestTrade(runID, tradeID string, tradeNum int) *domain.Trade {
	return &domain.Trade{
		TradeID:  tradeID,
		RunID:    runID,
		TradeNum: tradeNum,

		EntryTimeMs:  1700000000000 + int64(tradeNum)*900_000,
		EntryPrice:   20000,
		StopLoss:     19970,
		SLDistance:   30,
		TP1Price:     20045,
		EntryScore:   8.3,
		EntrySession: domain.SessionUS,

		ExitTimeMs: 1700000900000 + int64(tradeNum)*900_000,
		ExitPrice:  20045,
		ExitReason: domain.ExitReasonTrailS1,
		TP1Hit:     true,
		TrailStage: 1,

		PnLTP1:       900,
		PnLRunner:    900,
		Costs:        33.5,
		TotalPnL:     1766.5,
		RRAchieved:   1.5,
		CapitalAfter: 101_766.5,
	}
}

func TestTradeStore_InsertAndGetByRunID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runID := createTestRun(t, ctx, pool, "run-trades-1")

	store := NewTradeStore(pool)

	trade := createTestTrade(runID, "trade-001", 1)
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByRunID(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, trade.TradeID, got[0].TradeID)
	assert.Equal(t, trade.TradeNum, got[0].TradeNum)
	assert.Equal(t, trade.EntryPrice, got[0].EntryPrice)
	assert.Equal(t, trade.ExitReason, got[0].ExitReason)
	assert.Equal(t, trade.EntrySession, got[0].EntrySession)
	assert.True(t, got[0].TP1Hit)
	assert.Equal(t, trade.TotalPnL, got[0].TotalPnL)
	assert.Equal(t, trade.CapitalAfter, got[0].CapitalAfter)
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runID := createTestRun(t, ctx, pool, "run-trades-2")

	store := NewTradeStore(pool)

	trade := createTestTrade(runID, "trade-dup", 1)
	require.NoError(t, store.Insert(ctx, trade))

	err := store.Insert(ctx, trade)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runID := createTestRun(t, ctx, pool, "run-trades-3")

	store := NewTradeStore(pool)

	existing := createTestTrade(runID, "trade-exists", 1)
	require.NoError(t, store.Insert(ctx, existing))

	// Batch contains a duplicate: nothing from the batch may land.
	batch := []*domain.Trade{
		createTestTrade(runID, "trade-new", 2),
		createTestTrade(runID, "trade-exists", 3),
	}
	err := store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTradeStore_GetByRunIDOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runID := createTestRun(t, ctx, pool, "run-trades-4")
	otherRun := createTestRun(t, ctx, pool, "run-trades-5")

	store := NewTradeStore(pool)

	// Insert out of order.
	require.NoError(t, store.Insert(ctx, createTestTrade(runID, "trade-c", 3)))
	require.NoError(t, store.Insert(ctx, createTestTrade(runID, "trade-a", 1)))
	require.NoError(t, store.Insert(ctx, createTestTrade(runID, "trade-b", 2)))
	require.NoError(t, store.Insert(ctx, createTestTrade(otherRun, "trade-other", 1)))

	got, err := store.GetByRunID(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].TradeNum, got[1].TradeNum, got[2].TradeNum})

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTradeStore_InsertBulkEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}
