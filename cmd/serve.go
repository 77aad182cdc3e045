package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/okian/cragboard/internal/adapters/broadcast"
	"github.com/okian/cragboard/internal/adapters/http/api"
	"github.com/okian/cragboard/internal/adapters/http/site"
	"github.com/okian/cragboard/internal/adapters/http/swagger"
	workerpool "github.com/okian/cragboard/internal/adapters/mq/worker"
	repository "github.com/okian/cragboard/internal/adapters/repository"
	"github.com/okian/cragboard/internal/adapters/roster"
	app "github.com/okian/cragboard/internal/app"
	"github.com/okian/cragboard/internal/config"
	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scoreboard HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, log, err := setup(ctx, os.Stdout)
	if err != nil {
		return err
	}
	return run(ctx, cfg, log)
}

// openStore opens the result store selected by cfg.
func openStore(cfg *config.Config, terms model.Terminology, log logger.Logger) (repository.Store, error) {
	opts := []repository.Option{
		repository.WithLogger(log.Named("store")),
		repository.WithTerminology(terms),
	}
	switch cfg.StoreBackend {
	case config.BackendCSV:
		return repository.NewCSVStore(cfg.ResultsPath, opts...), nil
	case config.BackendBadger:
		return repository.OpenBadgerStore(cfg.BadgerPath, opts...)
	case config.BackendMemory:
		return repository.NewMemStore(opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown store_backend %q", config.ErrInvalidConfig, cfg.StoreBackend)
	}
}

// run wires the service from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	terms := model.NewTerminology(cfg.MilestoneLabel)

	store, err := openStore(cfg, terms, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	rs := roster.New(cfg.RosterPath,
		roster.WithLogger(log.Named("roster")),
		roster.WithMaxBytes(cfg.MaxUploadBytes))
	if err := rs.Load(ctx); err != nil {
		// /data answers 500 until the roster is fixed or uploaded.
		log.Warn(ctx, "roster not loaded", logger.String("path", cfg.RosterPath), logger.Error(err))
	}

	hub := broadcast.NewHub(
		broadcast.WithLogger(log.Named("live")),
		broadcast.WithTerminology(terms))

	var publisher workerpool.Publisher = hub
	var relay *broadcast.RedisRelay
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		pub, err := broadcast.NewRedisPublisher(client, cfg.RedisChannel, terms)
		if err != nil {
			_ = store.Close()
			return err
		}
		relay, err = broadcast.NewRedisRelay(client, cfg.RedisChannel, hub, log)
		if err != nil {
			_ = store.Close()
			return err
		}
		publisher = pub
		log.Info(ctx, "live results fan out through redis",
			logger.String("addr", cfg.RedisAddr),
			logger.String("channel", cfg.RedisChannel))
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithRoster(rs),
		app.WithPublisher(publisher),
		app.WithRoutes(cfg.Routes),
		app.WithTerminology(terms),
		app.WithSameAttemptMilestone(cfg.SameAttemptMilestone),
		app.WithWorkerCount(cfg.BroadcastWorkers),
		app.WithQueueSize(cfg.BroadcastQueueSize),
	)
	// Workers outlive the signal so Stop can drain them.
	if err := svc.Start(context.WithoutCancel(ctx)); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	api.NewServer(svc,
		api.WithLogger(log),
		api.WithLiveHandler(hub),
		api.WithSubmitRateLimit(cfg.SubmitRateLimit, cfg.SubmitBurst),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
	).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.RequestIDMiddleware(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop intake first, then drain pending broadcasts to viewers
		// before disconnecting them.
		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("service stop: %w", err))
		}
		if err := hub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("live hub close: %w", err))
		}
		log.Info(context.Background(), "server stopped")
		return errors.Join(errs...)
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	if cfg.WatchRoster {
		g.Go(func() error {
			if err := rs.Watch(gctx); err != nil {
				// Hot reload is optional; uploads still work.
				log.Warn(gctx, "roster watch stopped", logger.Error(err))
			}
			return nil
		})
	}
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}

	err = g.Wait()
	if err != nil {
		log.Error(context.Background(), "scoreboard exited with error", logger.Error(err))
	}
	return err
}
