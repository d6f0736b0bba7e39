package server

import (
	"encoding/json"
	"net/http"

	"github.com/voyagen/stalker2m3u/internal/logging"
)

// APIError is the error envelope for all error responses.
type APIError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l := logging.WithComponent("http")
		l.Warn().Err(err).Msg("writeJSON")
	}
}

func writeErr(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= 500 {
		l := logging.FromContext(r.Context())
		l.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, APIError{Error: err.Error()})
}
