package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert violates a unique
	// constraint outside the provider upsert path.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaleSnapshot is returned by conditional ledger appends when a
	// newer snapshot was written concurrently. Callers re-read the latest
	// snapshot and retry.
	ErrStaleSnapshot = errors.New("stale snapshot: newer snapshot exists")
)
