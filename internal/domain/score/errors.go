package score

import "errors"

// Sentinel kinds for score computation errors.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidProgress      = errors.New("invalid progress counters")
)
