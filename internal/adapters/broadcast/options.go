package broadcast

import (
	"time"

	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/pkg/logger"
)

// Option applies a configuration option to a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// WithTerminology sets the milestone label used in message keys.
func WithTerminology(t model.Terminology) Option {
	return func(h *Hub) {
		h.terms = t
	}
}

// WithSendBuffer sets how many messages may queue for one viewer before it
// is dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithWriteTimeout bounds each websocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithPingInterval sets the keepalive period. Viewers silent for twice the
// interval are dropped.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithAllowedOrigins restricts websocket upgrades to the given origins.
// Empty allows all.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Hub) {
		h.origins = append([]string(nil), origins...)
	}
}
