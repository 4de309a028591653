package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-arena/internal/flows"
	"github.com/jwebster45206/story-arena/pkg/scenario"
	"github.com/jwebster45206/story-arena/pkg/storage"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// statusFor maps flow errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scenario.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, flows.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, flows.ErrTurnInProgress):
		return http.StatusConflict
	case errors.Is(err, flows.ErrCollaborator):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "Internal server error"
	case http.StatusServiceUnavailable:
		logger.Warn("Collaborator unavailable", "path", r.URL.Path, "error", err)
		msg = "The storyteller is unavailable right now, please try again"
	}
	writeErrorMessage(w, logger, status, msg)
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}
