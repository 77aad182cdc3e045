package api

import (
	"net/http"

	"github.com/okian/cragboard/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	defaultMaxUploadBytes int64 = 1 << 20
	maxSubmitBytes        int64 = 64 << 10
)

type options struct {
	log            logger.Logger
	live           http.Handler
	submitLimiter  *rate.Limiter
	maxUploadBytes int64
}

func defaultOptions() options {
	return options{
		log:            logger.Nop(),
		maxUploadBytes: defaultMaxUploadBytes,
	}
}

// Option configures the Server.
type Option func(*options)

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithLiveHandler mounts h at GET /live.
func WithLiveHandler(h http.Handler) Option {
	return func(o *options) {
		o.live = h
	}
}

// WithSubmitRateLimit caps POST /submit at rps requests per second with the
// given burst. A non-positive rps disables the limit.
func WithSubmitRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps <= 0 {
			o.submitLimiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.submitLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxUploadBytes caps the roster upload body.
func WithMaxUploadBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}
