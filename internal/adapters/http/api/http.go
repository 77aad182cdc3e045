// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SubmitDependencies
	DataDependencies
	LeaderboardDependencies
	RosterDependencies
	StatsProvider
}

// SubmitDependencies accepts one climber's attempts on one route.
type SubmitDependencies interface {
	Submit(ctx context.Context, climber, route string, seq []model.Attempt) (model.Result, error)
}

// DataDependencies supplies the roster and route list.
type DataDependencies interface {
	Data(ctx context.Context) (types.Data, error)
}

// LeaderboardDependencies exposes the stored results.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) ([]model.Result, error)
	Summary(ctx context.Context) ([]types.SummaryEntry, error)
	Submitted(ctx context.Context) ([]types.SubmittedPair, error)
	Terminology() model.Terminology
}

// RosterDependencies replaces the climber roster.
type RosterDependencies interface {
	ReplaceRoster(ctx context.Context, r io.Reader) (int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	opts options

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	dataHandler        *DataHandler
	submitHandler      *SubmitHandler
	leaderboardHandler *LeaderboardHandler
	rosterHandler      *RosterHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.Named("api")
	return &Server{
		opts:               o,
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		dataHandler:        NewDataHandler(deps, log),
		submitHandler:      NewSubmitHandler(deps, log),
		leaderboardHandler: NewLeaderboardHandler(deps, log),
		rosterHandler:      NewRosterHandler(deps, o.maxUploadBytes, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	submit := RateLimitMiddleware(s.submitHandler.HandleSubmit, s.opts.submitLimiter)

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/data", MetricsMiddleware(s.dataHandler.HandleData, "data"))
	mux.HandleFunc("/submit", MetricsMiddleware(submit, "submit"))
	mux.HandleFunc("/results.json", MetricsMiddleware(s.leaderboardHandler.HandleResults, "results"))
	mux.HandleFunc("/summary.json", MetricsMiddleware(s.leaderboardHandler.HandleSummary, "summary"))
	mux.HandleFunc("/submitted.json", MetricsMiddleware(s.leaderboardHandler.HandleSubmitted, "submitted"))
	mux.HandleFunc("/upload-climbers", MetricsMiddleware(s.rosterHandler.HandleUpload, "upload_climbers"))

	// The websocket upgrade needs the raw ResponseWriter, so /live is not
	// wrapped by MetricsMiddleware.
	if s.opts.live != nil {
		mux.Handle("/live", s.opts.live)
	}
}
