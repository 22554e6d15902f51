package storeapi

import "errors"

// Sentinel kinds for backing store errors. Callers match with errors.Is.
var (
	// ErrInvalidArgument covers malformed identifiers and rejected payloads.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a table or user row is absent.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on duplicate table creation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnavailable is returned when the store is unreachable or keeps
	// failing transiently after the retry budget is exhausted.
	ErrUnavailable = errors.New("store unavailable")
)
