// Package service implements the scoreboard operations behind the HTTP API:
// accepting attempt submissions and answering leaderboard, summary and
// roster queries.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/cragboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/cragboard/internal/adapters/mq/worker"
	repository "github.com/okian/cragboard/internal/adapters/repository"
	"github.com/okian/cragboard/internal/domain/attempts"
	"github.com/okian/cragboard/internal/domain/dedupe"
	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/internal/domain/types"
	"github.com/okian/cragboard/pkg/logger"
	"github.com/okian/cragboard/pkg/metrics"
)

// Roster supplies and replaces the climber list.
type Roster interface {
	Climbers(ctx context.Context) ([]string, error)
	Replace(ctx context.Context, r io.Reader) (int, error)
}

// Service implements the API dependencies for the scoreboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	roster     Roster
	validator  *attempts.Validator
	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	publisher  workerpool.Publisher
	workerPool *workerpool.Pool

	// Configuration
	routes      []string
	terms       model.Terminology
	sameAttempt bool
	workerCount int
	queueSize   int
	clock       func() time.Time

	// Counters for the results gauges, seeded at start.
	results atomic.Int64
	tops    atomic.Int64

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the result store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRoster sets the climber roster.
func WithRoster(r Roster) Option {
	return func(s *Service) {
		s.roster = r
	}
}

// WithPublisher sets where stored results are broadcast. Without one,
// results are stored but not broadcast.
func WithPublisher(p workerpool.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithRoutes sets the static route list.
func WithRoutes(routes []string) Option {
	return func(s *Service) {
		if len(routes) > 0 {
			s.routes = append([]string(nil), routes...)
		}
	}
}

// WithTerminology sets the milestone label.
func WithTerminology(t model.Terminology) Option {
	return func(s *Service) {
		s.terms = t
	}
}

// WithSameAttemptMilestone lets a milestone on the topping attempt count
// for that attempt's own top.
func WithSameAttemptMilestone(allow bool) Option {
	return func(s *Service) {
		s.sameAttempt = allow
	}
}

// WithWorkerCount sets the number of broadcast workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the broadcast queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithClock sets the time source for result timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		routes:      []string{"Route 1", "Route 2", "Route 3", "Route 4", "Route 5", "Route 6"},
		terms:       model.NewTerminology(""),
		workerCount: 1,
		queueSize:   1024,
		clock:       time.Now,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
	}
	s.logger = s.logger.Named("service")
	s.validator = attempts.NewValidator(
		attempts.WithTerminology(s.terms),
		attempts.WithSameAttemptMilestone(s.sameAttempt),
	)
	return s
}

// Start seeds the duplicate guard from the store and starts the broadcast
// workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting scoreboard service...")

	existing, err := s.store.ListAll(ctx)
	if err != nil {
		// FindByKey still guards against duplicates; only the in-process
		// claim set starts empty.
		s.logger.Warn(ctx, "could not read stored results at start", logger.Error(err))
		existing = nil
	}
	keys := make([]string, 0, len(existing))
	var tops int64
	for _, r := range existing {
		keys = append(keys, r.Key().String())
		if r.TopAchieved {
			tops++
		}
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithCapacityHint(len(keys)))
	s.deduper.Seed(ctx, keys)
	s.results.Store(int64(len(existing)))
	s.tops.Store(tops)
	metrics.UpdateResultsTotal(len(existing), int(tops))

	if s.publisher != nil {
		s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
		s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.publisher,
			workerpool.WithLogger(s.logger.Named("broadcast")))
		s.workerPool.Start(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "scoreboard service started",
		logger.Int("results", len(existing)),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("milestone", s.terms.Label()),
	)
	return nil
}

// Stop drains pending broadcasts and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping scoreboard service...")

	var errs []error
	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "scoreboard service stopped")
	return errors.Join(errs...)
}

// Submit validates and stores the result of one climber on one route, then
// queues it for broadcast. A nil seq means the attempts were not supplied;
// an empty, non-nil seq is a valid zero-attempt result.
//
// The store check catches results from earlier runs or other writers; the
// claim closes the window between that check and the append for
// concurrent submissions in this process.
func (s *Service) Submit(ctx context.Context, climber, route string, seq []model.Attempt) (model.Result, error) {
	climber = strings.TrimSpace(climber)
	route = strings.TrimSpace(route)
	if climber == "" || route == "" || seq == nil {
		metrics.RecordSubmission(metrics.OutcomeMissing)
		return model.Result{}, ErrMissingFields
	}

	if err := s.validator.Validate(seq); err != nil {
		metrics.RecordSubmission(metrics.OutcomeInvalid)
		return model.Result{}, fmt.Errorf("%w: %w", ErrInvalidSequence, err)
	}

	s.mu.RLock()
	started, deduper, q := s.started, s.deduper, s.eventQueue
	s.mu.RUnlock()
	if !started {
		return model.Result{}, ErrNotStarted
	}

	_, err := s.store.FindByKey(ctx, climber, route)
	switch {
	case err == nil:
		metrics.RecordSubmission(metrics.OutcomeDuplicate)
		return model.Result{}, ErrDuplicateSubmission
	case !errors.Is(err, repository.ErrNotFound):
		return model.Result{}, s.storageFailure(ctx, climber, route, "lookup", err)
	}

	key := model.Key{Climber: climber, Route: route}.String()
	if deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSubmission(metrics.OutcomeDuplicate)
		return model.Result{}, ErrDuplicateSubmission
	}

	fields := attempts.Aggregate(seq)
	result := model.NewResult(s.clock(), climber, route, fields)

	if err := s.store.Append(ctx, result); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Another writer got there first; the claim stays.
			metrics.RecordSubmission(metrics.OutcomeDuplicate)
			return model.Result{}, ErrDuplicateSubmission
		}
		deduper.Unrecord(ctx, key)
		return model.Result{}, s.storageFailure(ctx, climber, route, "append", err)
	}

	metrics.RecordSubmission(metrics.OutcomeSaved)
	total := s.results.Add(1)
	tops := s.tops.Load()
	if fields.TopAchieved {
		tops = s.tops.Add(1)
	}
	metrics.UpdateResultsTotal(int(total), int(tops))

	s.logger.Info(ctx, "result saved",
		logger.String("climber", climber),
		logger.String("route", route),
		logger.Int("attempts", fields.TotalAttempts),
		logger.Bool("top", fields.TopAchieved),
	)

	if q != nil {
		ev := model.ResultEvent{
			Climber:  climber,
			Route:    route,
			Fields:   fields,
			Attempts: append([]model.Attempt(nil), seq...),
		}
		// Detached from the request so a client disconnect cannot drop it.
		if !q.Enqueue(context.WithoutCancel(ctx), ev) {
			s.logger.Warn(ctx, "broadcast dropped",
				logger.String("climber", climber),
				logger.String("route", route))
		}
	}
	return result, nil
}

func (s *Service) storageFailure(ctx context.Context, climber, route, op string, err error) error {
	metrics.RecordSubmission(metrics.OutcomeStorage)
	metrics.RecordErrorByComponent("service", op+"_failed")
	s.logger.Error(ctx, "result storage failed",
		logger.String("op", op),
		logger.String("climber", climber),
		logger.String("route", route),
		logger.Error(err),
	)
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

// Leaderboard returns every stored result in store order.
func (s *Service) Leaderboard(ctx context.Context) ([]model.Result, error) {
	return s.store.ListAll(ctx)
}

// Summary groups stored results by climber, in order of each climber's
// first result, listing routes in store order.
func (s *Service) Summary(ctx context.Context) ([]types.SummaryEntry, error) {
	results, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []types.SummaryEntry{}
	index := make(map[string]int)
	for _, r := range results {
		i, ok := index[r.Climber]
		if !ok {
			i = len(out)
			index[r.Climber] = i
			out = append(out, types.SummaryEntry{Climber: r.Climber, Routes: []string{}})
		}
		out[i].Routes = append(out[i].Routes, r.Route)
		out[i].Count = len(out[i].Routes)
	}
	return out, nil
}

// Submitted lists the (climber, route) pairs that have a result.
func (s *Service) Submitted(ctx context.Context) ([]types.SubmittedPair, error) {
	results, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.SubmittedPair, 0, len(results))
	for _, r := range results {
		out = append(out, types.SubmittedPair{Climber: r.Climber, Route: r.Route})
	}
	return out, nil
}

// Data returns the roster and the configured routes.
func (s *Service) Data(ctx context.Context) (types.Data, error) {
	if s.roster == nil {
		return types.Data{}, ErrRosterUnavailable
	}
	climbers, err := s.roster.Climbers(ctx)
	if err != nil {
		return types.Data{}, fmt.Errorf("%w: %w", ErrRosterUnavailable, err)
	}
	return types.Data{Climbers: climbers, Routes: s.Routes()}, nil
}

// ReplaceRoster swaps in a new climber list.
func (s *Service) ReplaceRoster(ctx context.Context, r io.Reader) (int, error) {
	if s.roster == nil {
		return 0, ErrRosterUnavailable
	}
	return s.roster.Replace(ctx, r)
}

// Routes returns a copy of the configured routes.
func (s *Service) Routes() []string {
	return append([]string(nil), s.routes...)
}

// Terminology returns the milestone naming in use.
func (s *Service) Terminology() model.Terminology {
	return s.terms
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"milestone":   s.terms.Label(),
		"routes":      len(s.routes),
		"results":     s.results.Load(),
		"tops":        s.tops.Load(),
	}

	if s.started {
		stats["claimedPairs"] = s.deduper.Size()
		if s.eventQueue != nil {
			stats["queueLength"] = s.eventQueue.Len(ctx)
		}
	}
	return stats
}
