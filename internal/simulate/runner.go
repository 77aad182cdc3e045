package simulate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/cragboard/pkg/logger"
)

// ErrVerification reports that the read views disagree with the accepted
// submissions.
var ErrVerification = errors.New("simulation verification failed")

type dataResponse struct {
	Climbers []string `json:"climbers"`
	Routes   []string `json:"routes"`
}

// Run executes a complete simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Climbers < 1 {
		return nil, fmt.Errorf("climbers must be positive, got %d", cfg.Climbers)
	}
	log := cfg.Logger.Named("simulate")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("climbers", cfg.Climbers),
		logger.Int("workers", cfg.Workers),
		logger.Float64("invalidRate", cfg.InvalidRate),
		logger.Float64("duplicateRate", cfg.DuplicateRate))

	// Step 1: Check service health
	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Resolve routes
	if len(cfg.Routes) == 0 {
		var data dataResponse
		if err := client.getJSON(ctx, "/data", &data); err != nil {
			return nil, fmt.Errorf("route lookup failed: %w", err)
		}
		cfg.Routes = data.Routes
	}
	if len(cfg.Routes) == 0 {
		return nil, errors.New("server has no routes")
	}

	// Step 3: Generate climbers and submissions
	climbers := generateClimbers(cfg.Climbers)
	if cfg.UploadRoster {
		if err := client.uploadRoster(ctx, climbers); err != nil {
			return nil, err
		}
		log.Info(ctx, "roster replaced with generated climbers", logger.Int("climbers", len(climbers)))
	}
	subs := generateSubmissions(&cfg, climbers)
	stats.Generated = len(subs)
	log.Info(ctx, "generated submissions", logger.Int("count", len(subs)))

	// Step 4: Submit concurrently
	records := submitAll(ctx, &cfg, client, subs, stats)
	log.Info(ctx, "submissions completed",
		logger.Int("saved", stats.Saved),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("invalid", stats.Invalid),
		logger.Int("failed", stats.Failed))
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// Step 5: Verify read views
	problems, err := verify(ctx, client, climbers, records)
	if err != nil {
		return stats, fmt.Errorf("verification read failed: %w", err)
	}
	stats.Mismatches = problems
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	for _, p := range problems {
		log.Warn(ctx, "mismatch", logger.String("detail", p))
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("saved", stats.Saved),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("invalid", stats.Invalid),
		logger.Int("failed", stats.Failed),
		logger.Int("mismatches", len(problems)),
		logger.Duration("duration", stats.Duration))

	if stats.Failed > 0 || len(problems) > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d mismatches", ErrVerification, stats.Failed, len(problems))
	}
	return stats, nil
}
