package api

import (
	"net/http"

	"github.com/okian/cragboard/pkg/logger"
)

// DataHandler serves the roster and route list.
type DataHandler struct {
	deps DataDependencies
	log  logger.Logger
}

// NewDataHandler creates a new data handler.
func NewDataHandler(deps DataDependencies, log logger.Logger) *DataHandler {
	return &DataHandler{deps: deps, log: log}
}

// HandleData handles GET /data requests.
func (h *DataHandler) HandleData(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_data"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	data, err := h.deps.Data(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "roster read failed",
			logger.String("requestId", RequestIDFromContext(r.Context())),
			logger.Error(Wrap(op, err)))
		writeError(w, http.StatusInternalServerError, msgRosterError)
		return
	}
	if data.Climbers == nil {
		data.Climbers = []string{}
	}
	if data.Routes == nil {
		data.Routes = []string{}
	}
	writeJSON(w, http.StatusOK, data)
}
