package app

import "errors"

// Errors returned by the service.
var (
	// ErrNotStarted reports an operation before Start succeeded.
	ErrNotStarted = errors.New("service not started")
	// ErrInvalidTask reports an empty or malformed task id.
	ErrInvalidTask = errors.New("invalid task id")
	// ErrInvalidMetric reports a metric value that is NaN or infinite.
	ErrInvalidMetric = errors.New("invalid metric value")
)
