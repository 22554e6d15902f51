package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrInvalidID = errors.New("invalid identifier")
)
