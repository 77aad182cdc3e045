package broadcast

import "errors"

// Sentinel kinds for broadcast errors.
var (
	ErrHubClosed   = errors.New("hub closed")
	ErrNoRedis     = errors.New("redis client is required")
	ErrNoChannel   = errors.New("redis channel is required")
	ErrNoBroadcast = errors.New("relay target is required")
)
