package clickhouse

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/storage"
)

func testFeatureRow(timestampMs int64) *domain.FeatureRow {
	return &domain.FeatureRow{
		TimestampMs: timestampMs,
		Open:        20000,
		High:        20010,
		Low:         19990,
		Close:       20005,

		PrimaryBull:     true,
		MTF1hBull:       true,
		TrendFilterBull: true,
		VolAbove:        true,
		RSINeutral:      true,
		EMASlopeBull:    true,

		ATR:             12.5,
		ATRPercentile:   55,
		TechnicalStop:   19975,
		TrendFilterLine: 19980,

		Session:   domain.SessionUS,
		DayOfWeek: time.Tuesday,
	}
}

func TestFeatureRowStore_InsertBulkAndGetBySymbol(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeatureRowStore(conn)

	rows := []*domain.FeatureRow{
		testFeatureRow(1000),
		testFeatureRow(2000),
		testFeatureRow(3000),
	}
	require.NoError(t, store.InsertBulk(ctx, "NQ", rows))

	got, err := store.GetBySymbol(ctx, "NQ")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[2].TimestampMs)
	assert.True(t, got[0].PrimaryBull)
	assert.False(t, got[0].VolSpike)
	assert.Equal(t, domain.SessionUS, got[0].Session)
	assert.Equal(t, time.Tuesday, got[0].DayOfWeek)
	assert.Equal(t, 12.5, got[0].ATR)
	assert.Equal(t, 19975.0, got[0].TechnicalStop)
}

func TestFeatureRowStore_NaNRoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeatureRowStore(conn)

	// Warm-up bars carry NaN indicator values.
	row := testFeatureRow(1000)
	row.ATRPercentile = math.NaN()
	row.TrendFilterLine = math.NaN()
	require.NoError(t, store.InsertBulk(ctx, "NQ", []*domain.FeatureRow{row}))

	got, err := store.GetBySymbol(ctx, "NQ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, math.IsNaN(got[0].ATRPercentile))
	assert.True(t, math.IsNaN(got[0].TrendFilterLine))
}

func TestFeatureRowStore_DuplicateTimestamp(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeatureRowStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "NQ", []*domain.FeatureRow{testFeatureRow(1000)}))

	// Same timestamp against existing DB rows.
	err := store.InsertBulk(ctx, "NQ", []*domain.FeatureRow{testFeatureRow(1000)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Intra-batch duplicate.
	err = store.InsertBulk(ctx, "NQ", []*domain.FeatureRow{testFeatureRow(2000), testFeatureRow(2000)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same timestamp under a different symbol is fine.
	require.NoError(t, store.InsertBulk(ctx, "ES", []*domain.FeatureRow{testFeatureRow(1000)}))
}

func TestFeatureRowStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeatureRowStore(conn)

	rows := []*domain.FeatureRow{
		testFeatureRow(1000),
		testFeatureRow(2000),
		testFeatureRow(3000),
		testFeatureRow(4000),
	}
	require.NoError(t, store.InsertBulk(ctx, "NQ", rows))

	got, err := store.GetByTimeRange(ctx, "NQ", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[1].TimestampMs)
}
