package api

import (
	"net/http"

	"github.com/okian/cragboard/internal/domain/types"
	"github.com/okian/cragboard/pkg/logger"
)

// LeaderboardHandler serves the read views over stored results. Every
// request re-reads the store.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
	log  logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, log logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, log: log}
}

// HandleResults handles GET /results.json requests.
func (h *LeaderboardHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_results"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	results, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		h.fail(r, op, err)
		writeError(w, http.StatusInternalServerError, msgResultsError)
		return
	}
	writeJSON(w, http.StatusOK, types.ResultRecords(h.deps.Terminology(), results))
}

// HandleSummary handles GET /summary.json requests.
func (h *LeaderboardHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_summary"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	summary, err := h.deps.Summary(r.Context())
	if err != nil {
		h.fail(r, op, err)
		writeError(w, http.StatusInternalServerError, msgSummaryError)
		return
	}
	if summary == nil {
		summary = []types.SummaryEntry{}
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleSubmitted handles GET /submitted.json requests.
func (h *LeaderboardHandler) HandleSubmitted(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_submitted"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	pairs, err := h.deps.Submitted(r.Context())
	if err != nil {
		h.fail(r, op, err)
		writeError(w, http.StatusInternalServerError, msgSubmittedError)
		return
	}
	if pairs == nil {
		pairs = []types.SubmittedPair{}
	}
	writeJSON(w, http.StatusOK, pairs)
}

func (h *LeaderboardHandler) fail(r *http.Request, op string, err error) {
	h.log.Error(r.Context(), "result store read failed",
		logger.String("requestId", RequestIDFromContext(r.Context())),
		logger.Error(Wrap(op, err)))
}
