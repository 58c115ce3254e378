package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler provides HTTP health check endpoints for the churn service.
type HealthHandler struct {
	logger      *slog.Logger
	startTime   time.Time
	modelLoaded func() bool
}

// NewHealthHandler creates a new health check handler. modelLoaded drives
// readiness: the service is ready only while a bundle is loaded.
func NewHealthHandler(modelLoaded func() bool, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		logger:      logger,
		startTime:   time.Now(),
		modelLoaded: modelLoaded,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the JSON response for readiness checks.
type ReadinessResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
}

// Healthz handles liveness probe requests.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Readyz handles readiness probe requests.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	resp := ReadinessResponse{
		Status:  "ready",
		Service: serviceName,
		Checks:  map[string]string{"model": "ok"},
	}
	if h.modelLoaded == nil || !h.modelLoaded() {
		resp.Status = "not_ready"
		resp.Checks["model"] = "not loaded"
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
