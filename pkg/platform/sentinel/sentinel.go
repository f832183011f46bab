package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into results or domain errors.
//
// - ErrNotFound: entry does not exist in the store
// - ErrExpired: entry exists physically but its lifetime has elapsed
// - ErrAlreadyUsed: single-use entry has been consumed
// - ErrInvalidState: entry or argument in the wrong state for the operation
// - ErrUnavailable: backing service temporarily unavailable
//
// For input validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
