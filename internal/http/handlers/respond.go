package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/balejosg/openpath-sub004/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service sentinels onto HTTP statuses, with
// the conflicting entry included on 409 so the caller can display it.
func writeServiceError(w http.ResponseWriter, err error) {
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":                err.Error(),
			"conflicting_schedule": scheduleToResponse(conflict.Conflicting),
		})
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
