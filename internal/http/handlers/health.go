package handlers

import (
	"log/slog"
	"net/http"
)

// HealthHandler reports liveness
type HealthHandler struct {
	service     string
	environment string
	logger      *slog.Logger
}

func NewHealthHandler(service, environment string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{service: service, environment: environment, logger: logger}
}

// HandleHealth handles GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"status":      "ok",
		"service":     h.service,
		"environment": h.environment,
	})
}
