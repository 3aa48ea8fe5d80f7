package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrParse is returned when an index line cannot be decoded.
	// Per-record: callers skip the line and continue the batch.
	ErrParse = errors.New("index line parse error")

	// ErrSourceFetch is returned when one yellow page cannot be fetched.
	// Per-source: callers report it and continue with other sources.
	ErrSourceFetch = errors.New("yellow page fetch error")

	// ErrConfigProtocol is returned when a yp4g.xml document is malformed
	ErrConfigProtocol = errors.New("yp4g config protocol error")

	// ErrConflict is returned when a resource conflict occurs
	ErrConflict = errors.New("resource conflict")
)
