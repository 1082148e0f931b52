// Package feed supplies ordered feature rows to the engine: in-memory
// slices, CSV files, storage-backed loads, and a WebSocket live stream.
package feed

import (
	"context"
	"errors"
	"fmt"

	"nq-scalper-lab/internal/domain"
)

// ErrOutOfOrder is returned when rows are not in strictly ascending
// timestamp order.
var ErrOutOfOrder = errors.New("feature rows are not in strictly ascending timestamp order")

// Source loads the full ordered bar sequence for a run.
type Source interface {
	// Load returns all rows in strictly ascending timestamp order.
	Load(ctx context.Context) ([]*domain.FeatureRow, error)
}

// ValidateOrdering checks that rows are strictly ascending with no
// duplicate timestamps and that each row is structurally valid.
func ValidateOrdering(rows []*domain.FeatureRow) error {
	var prev int64
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if i > 0 && row.TimestampMs <= prev {
			return fmt.Errorf("row %d (ts %d after %d): %w", i, row.TimestampMs, prev, ErrOutOfOrder)
		}
		prev = row.TimestampMs
	}
	return nil
}

// SliceFeed serves rows already held in memory.
type SliceFeed struct {
	rows []*domain.FeatureRow
}

// NewSliceFeed creates a feed over the given rows. Load validates ordering
// on every call so a mutated slice cannot slip through.
func NewSliceFeed(rows []*domain.FeatureRow) *SliceFeed {
	return &SliceFeed{rows: rows}
}

// Load implements Source.
func (f *SliceFeed) Load(_ context.Context) ([]*domain.FeatureRow, error) {
	if err := ValidateOrdering(f.rows); err != nil {
		return nil, err
	}
	return f.rows, nil
}

var _ Source = (*SliceFeed)(nil)
