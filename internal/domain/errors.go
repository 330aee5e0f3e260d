package domain

import "errors"

// Sentinel errors classified at the HTTP boundary. Wrap with
// fmt.Errorf("...: %w", ...) and test with errors.Is.
var (
	// ErrNotFound reports that no program/sheet row matched.
	ErrNotFound = errors.New("not found")
	// ErrDatabase reports a query, connection or decode failure.
	ErrDatabase = errors.New("database error")
	// ErrSourceUnavailable reports that an external batch or feedback
	// source failed to produce data.
	ErrSourceUnavailable = errors.New("source unavailable")
)
