package service

import "errors"

// Sentinel kinds for submission and query errors.
var (
	ErrMissingFields       = errors.New("missing or invalid fields")
	ErrInvalidSequence     = errors.New("invalid attempt sequence")
	ErrDuplicateSubmission = errors.New("result already submitted for this climber and route")
	ErrStorageFailure      = errors.New("result storage failed")
	ErrRosterUnavailable   = errors.New("roster unavailable")
	ErrNotStarted          = errors.New("service not started")
)
