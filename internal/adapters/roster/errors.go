package roster

import "errors"

// Sentinel kinds for roster errors.
var (
	ErrUnreadable  = errors.New("roster unreadable")
	ErrEmptyRoster = errors.New("roster has no climbers")
	ErrTooLarge    = errors.New("roster upload too large")
)
