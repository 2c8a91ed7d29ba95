package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ilocks/server/internal/validation"
)

const validationMessage = "One or more validation errors occurred."

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	ErrorCode         string            `json:"errorCode"`
	Message           string            `json:"message,omitempty"`
	RemainingAttempts *int              `json:"remainingAttempts,omitempty"`
	Errors            map[string]string `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, logger *slog.Logger, statusCode int, code, message string) {
	respondJSON(w, logger, statusCode, errorResponse{ErrorCode: code, Message: message})
}

func respondValidation(w http.ResponseWriter, logger *slog.Logger, errs validation.Errors) {
	respondJSON(w, logger, http.StatusBadRequest, errorResponse{
		ErrorCode: "validation_failed",
		Message:   validationMessage,
		Errors:    errs,
	})
}

// respondInternal logs err and hides it from the client
func respondInternal(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	respondWithError(w, logger, http.StatusInternalServerError, "internal_error", "An unexpected error occurred.")
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(dst)
}
