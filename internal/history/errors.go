package history

import "errors"

// Sentinel errors for history operations.
var (
	// ErrNotFound is returned when no reading matches the query.
	ErrNotFound = errors.New("history: reading not found")

	// ErrInvalidLimit is returned when a query limit is zero or negative.
	ErrInvalidLimit = errors.New("history: limit must be positive")
)
