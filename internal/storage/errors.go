package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoRows is returned by persistence flows that refuse to run
	// against an empty input set, such as a sync where every source
	// came back empty.
	ErrNoRows = errors.New("no rows to persist")
)
