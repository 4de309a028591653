package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is any dependency with a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

type HealthHandler struct {
	components map[string]Pinger
	service    string
	logger     *slog.Logger
}

// NewHealthHandler checks each named component on every request.
func NewHealthHandler(service string, components map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		components: components,
		service:    service,
		logger:     logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string, len(h.components))
	overallStatus := "healthy"
	for name, p := range h.components {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			overallStatus = "degraded"
			continue
		}
		components[name] = "healthy"
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    h.service,
		Components: components,
	})
}
