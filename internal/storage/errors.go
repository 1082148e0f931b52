package storage

import "errors"

// Sentinel errors shared by every backend. The stores are append-only: a
// run and its trade ledger are written once and never updated.
var (
	// ErrNotFound is returned when the requested run, trade, or row set
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned on an insert whose key already exists.
	// There is no upsert path; rewriting a persisted ledger is a bug.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when a record fails validation before
	// it reaches the backend.
	ErrInvalidInput = errors.New("invalid input")
)
