package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound        = errors.New("not found")
	ErrNoMethod        = errors.New("no brewing method loaded")
	ErrNotRunning      = errors.New("session is not running")
	ErrSkipUnavailable = errors.New("skip is only available during the final wait")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)
