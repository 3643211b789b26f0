package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so the API has one
// success shape per resource and one error shape overall:
//
//	{"error": "not_found", "message": "excerpt not found with id 12"}
//
// Request helpers live here too: decodeJSON, pathID and queryID turn bad
// input into apperror validation errors, so a malformed body or id is always
// a 400 and never reaches a service.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/listen-api/internal/apperror"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sets headers and status before encoding; once the body starts,
// headers can no longer change.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its status code. Anything that is not an
// *apperror.AppError is a 500 with a generic message: raw errors can carry
// SQL or file paths.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
		errorType = "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		errorType = "conflict"
	case errors.Is(err, apperror.ErrUnavailable):
		status = http.StatusServiceUnavailable
		errorType = "unavailable"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
	})
}

// decodeJSON reads a single JSON object into dst. Empty, malformed or
// trailing-garbage bodies are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is required")
		}
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}
	return nil
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	return parseID("id", chi.URLParam(r, "id"))
}

// queryID parses an optional integer query parameter: absent is nil.
func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(name, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed(field, fmt.Sprintf("%s must be an integer, got %q", field, raw))
	}
	return id, nil
}
