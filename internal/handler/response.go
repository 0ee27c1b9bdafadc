// Package handler translates HTTP requests into service calls and service
// results into the Conduit JSON envelopes. Handlers hold no business rules.
package handler

// Every error response has the same shape:
//
//	{"error": "not_found", "message": "article how-to-train not found"}
//
// plus "field" when a single input field is at fault.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/repository"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable type, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending input field, if any
}

// writeJSON sets headers and status before the body; header changes after
// the first Write are ignored.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status. Anything that is not an
// apperror is a 500 with a generic message; internal details never reach
// the client, only the log.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := http.StatusInternalServerError, "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, errorType = http.StatusUnprocessableEntity, "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status, errorType = http.StatusNotFound, "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status, errorType = http.StatusForbidden, "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status, errorType = http.StatusConflict, "conflict"
		case errors.Is(err, apperror.ErrUnauthorized):
			status, errorType = http.StatusUnauthorized, "unauthorized"
		}

		writeJSON(w, logger, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	// token failures carry a reason rather than an AppError
	if errors.Is(err, apperror.ErrUnauthorized) {
		writeJSON(w, logger, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: string(auth.ReasonOf(err)),
		})
		return
	}

	logger.Error("request failed", slog.String("error", err.Error()))
	writeJSON(w, logger, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("invalid JSON body",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		return apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return nil
}

// viewer returns the authenticated username, or "" for anonymous requests.
func viewer(r *http.Request) string {
	name, _ := auth.UsernameFromContext(r.Context())
	return name
}

// listOptions reads limit and offset from the query string.
func listOptions(r *http.Request) (repository.ListOptions, error) {
	var opts repository.ListOptions
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &opts.Limit}, {"offset", &opts.Offset}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed(p.name, fmt.Sprintf("%s must be a non-negative integer", p.name))
		}
		*p.dst = n
	}

	opts.Tag = q.Get("tag")
	opts.Author = q.Get("author")
	opts.FavoritedBy = q.Get("favorited")
	return opts, nil
}
