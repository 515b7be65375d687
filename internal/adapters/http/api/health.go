package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/faceattr/pkg/metrics"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps Dependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
	Device       string `json:"device"`
	AlbumsDir    string `json:"albums_dir"`
}

// HandleHealth handles GET /api/py/health.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	hs := h.deps.Health()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       hs.Status,
		ModelsLoaded: hs.ModelsLoaded,
		Device:       hs.Device,
		AlbumsDir:    hs.AlbumsDir,
	})
}

// NewMetricsHandler serves the service's Prometheus registry.
func NewMetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
