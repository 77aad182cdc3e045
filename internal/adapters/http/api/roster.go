package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/cragboard/internal/adapters/roster"
	"github.com/okian/cragboard/pkg/logger"
)

// multipartOverhead covers the form boundaries and headers around the file.
const multipartOverhead int64 = 64 << 10

// RosterHandler replaces the climber roster from an uploaded CSV.
type RosterHandler struct {
	deps     RosterDependencies
	maxBytes int64
	log      logger.Logger
}

// NewRosterHandler creates a new roster upload handler.
func NewRosterHandler(deps RosterDependencies, maxBytes int64, log logger.Logger) *RosterHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &RosterHandler{deps: deps, maxBytes: maxBytes, log: log}
}

// HandleUpload handles POST /upload-climbers requests. The CSV is read from
// the multipart field "file".
func (h *RosterHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_climbers"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	limit := h.maxBytes + multipartOverhead
	if r.ContentLength > limit {
		h.log.Warn(r.Context(), "roster upload rejected", logger.Error(NewKind(op, ErrUploadTooLarge)))
		writeText(w, http.StatusRequestEntityTooLarge, "Upload too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.Warn(r.Context(), "roster upload rejected", logger.Error(WrapKind(op, ErrUploadTooLarge, err)))
			writeText(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		h.log.Debug(r.Context(), "upload without file", logger.Error(WrapKind(op, ErrMissingUpload, err)))
		writeText(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	n, err := h.deps.ReplaceRoster(r.Context(), file)
	switch {
	case err == nil:
		writeText(w, http.StatusOK, fmt.Sprintf("Uploaded %d climbers", n))
	case errors.Is(err, roster.ErrTooLarge):
		h.log.Warn(r.Context(), "roster upload rejected", logger.Error(WrapKind(op, ErrUploadTooLarge, err)))
		writeText(w, http.StatusRequestEntityTooLarge, "Upload too large")
	case errors.Is(err, roster.ErrEmptyRoster):
		writeText(w, http.StatusBadRequest, "No climbers found in upload")
	default:
		h.log.Error(r.Context(), "roster upload failed",
			logger.String("requestId", RequestIDFromContext(r.Context())),
			logger.Error(Wrap(op, err)))
		writeText(w, http.StatusInternalServerError, "Error saving climbers.csv")
	}
}
