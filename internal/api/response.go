package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gyaneshwarpardhi/paperatlas/internal/engine"
	"github.com/gyaneshwarpardhi/paperatlas/internal/explorer"
	"github.com/gyaneshwarpardhi/paperatlas/internal/source"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeErr maps well-known errors to a status code.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, explorer.ErrUnknownNode), errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, explorer.ErrExpansionInFlight):
		return http.StatusConflict
	case errors.Is(err, engine.ErrQueueFull), errors.Is(err, explorer.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, explorer.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, explorer.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
