package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	service "github.com/okian/cragboard/internal/app"
	"github.com/okian/cragboard/internal/domain/attempts"
	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/pkg/logger"
)

// submitValidate checks request shape before the service sees it.
var submitValidate *validator.Validate

func init() {
	submitValidate = validator.New()
	_ = submitValidate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// submitRequest mirrors the OpenAPI schema for POST /submit. Attempts is a
// pointer so an absent or null list is told apart from an empty one.
type submitRequest struct {
	Climber  string           `json:"climber" validate:"required,notblank"`
	Route    string           `json:"route" validate:"required,notblank"`
	Attempts *[]model.Attempt `json:"attempts" validate:"required"`
}

func (s submitRequest) validate() error {
	return submitValidate.Struct(s)
}

// SubmitHandler handles result submissions.
type SubmitHandler struct {
	deps SubmitDependencies
	log  logger.Logger
}

// NewSubmitHandler creates a new submit handler.
func NewSubmitHandler(deps SubmitDependencies, log logger.Logger) *SubmitHandler {
	return &SubmitHandler{deps: deps, log: log}
}

// HandleSubmit handles POST /submit requests.
func (h *SubmitHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBytes)).Decode(&req); err != nil {
		h.log.Debug(r.Context(), "undecodable submission", logger.Error(WrapKind(op, ErrBadRequest, err)))
		writeText(w, http.StatusBadRequest, msgMissingFields)
		return
	}
	if err := req.validate(); err != nil {
		h.log.Debug(r.Context(), "incomplete submission", logger.Error(WrapKind(op, ErrBadRequest, err)))
		writeText(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	// Attempts is never nil here; an empty list stays non-nil.
	seq := *req.Attempts
	if seq == nil {
		seq = []model.Attempt{}
	}
	_, err := h.deps.Submit(r.Context(), req.Climber, req.Route, seq)
	var seqErr *attempts.SequenceError
	switch {
	case err == nil:
		writeText(w, http.StatusOK, msgSaved)
	case errors.Is(err, service.ErrMissingFields):
		writeText(w, http.StatusBadRequest, msgMissingFields)
	case errors.As(err, &seqErr):
		writeText(w, http.StatusBadRequest, seqErr.Error())
	case errors.Is(err, service.ErrDuplicateSubmission):
		writeError(w, http.StatusBadRequest, msgDuplicate)
	default:
		h.log.Error(r.Context(), "submission failed",
			logger.String("requestId", RequestIDFromContext(r.Context())),
			logger.String("climber", req.Climber),
			logger.String("route", req.Route),
			logger.Error(Wrap(op, err)))
		writeText(w, http.StatusInternalServerError, msgServerError)
	}
}
