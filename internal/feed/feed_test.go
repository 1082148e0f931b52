package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/storage/memory"
)

func orderedRows(timestamps ...int64) []*domain.FeatureRow {
	rows := make([]*domain.FeatureRow, 0, len(timestamps))
	for _, ts := range timestamps {
		rows = append(rows, &domain.FeatureRow{
			TimestampMs: ts,
			Open:        20000,
			High:        20010,
			Low:         19990,
			Close:       20005,
			Session:     domain.SessionUS,
			DayOfWeek:   time.Tuesday,
		})
	}
	return rows
}

func TestValidateOrdering(t *testing.T) {
	if err := ValidateOrdering(orderedRows(1000, 2000, 3000)); err != nil {
		t.Fatalf("ascending rows must validate: %v", err)
	}
	if err := ValidateOrdering(nil); err != nil {
		t.Fatalf("empty input must validate: %v", err)
	}

	err := ValidateOrdering(orderedRows(1000, 3000, 2000))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}

	// Duplicate timestamps are out of order too.
	err = ValidateOrdering(orderedRows(1000, 1000))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder for duplicates, got %v", err)
	}
}

func TestValidateOrderingRejectsBrokenRow(t *testing.T) {
	rows := orderedRows(1000)
	rows[0].High = 19000 // below low

	if err := ValidateOrdering(rows); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestSliceFeedLoad(t *testing.T) {
	f := NewSliceFeed(orderedRows(1000, 2000))
	rows, err := f.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	f = NewSliceFeed(orderedRows(2000, 1000))
	if _, err := f.Load(context.Background()); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
}

func TestStoreFeedLoad(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFeatureRowStore()
	if err := store.InsertBulk(ctx, "NQ", orderedRows(1000, 2000, 3000, 4000)); err != nil {
		t.Fatal(err)
	}

	rows, err := NewStoreFeed(store, "NQ").Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	ranged, err := NewStoreFeedRange(store, "NQ", 2000, 3000).Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 2 || ranged[0].TimestampMs != 2000 {
		t.Fatalf("expected rows 2000..3000, got %+v", ranged)
	}

	empty, err := NewStoreFeed(store, "ES").Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no rows for unknown symbol, got %d", len(empty))
	}
}
