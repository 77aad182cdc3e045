package api

import (
	"encoding/json"
	"net/http"
)

// Response bodies shared with the scoring front end.
const (
	msgSaved          = "Saved"
	msgMissingFields  = "Missing or invalid fields"
	msgServerError    = "Server error"
	msgDuplicate      = "Result already submitted for this climber and route."
	msgRosterError    = "Error reading climbers.csv"
	msgResultsError   = "Error reading result.csv"
	msgSummaryError   = "Error generating summary"
	msgSubmittedError = "Error reading submitted results"
	msgTooManyRequest = "Too many requests"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
