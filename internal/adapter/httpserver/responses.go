// Package httpserver contains the REST handlers and middleware of the
// procurement API. Every response carries a success flag; errors map the
// domain taxonomy onto HTTP status codes.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/procureflow/procureflow/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSuccess merges the success flag into the payload object.
func writeSuccess(w http.ResponseWriter, status int, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	writeJSON(w, status, payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrAIUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAIResponse), errors.Is(err, domain.ErrSchemaInvalid):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}
