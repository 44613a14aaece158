package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi/inventoryapitest"
)

// inventorySummary defines the minimal interface for backend health checks.
type inventorySummary interface {
	Summary(ctx context.Context) (inventoryapitest.Counts, error)
}

// HealthHandler serves health check endpoints for the dev API.
type HealthHandler struct {
	backend inventorySummary
	log     *slog.Logger
	version string
	started time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(backend inventorySummary, log *slog.Logger, version string) *HealthHandler {
	return &HealthHandler{
		backend: backend,
		log:     log.With("handler", "health"),
		version: version,
		started: time.Now(),
	}
}

// HealthResponse is the JSON response for /live and /health.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version,omitempty"`
	Uptime    string                   `json:"uptime,omitempty"`
	Inventory *inventoryapitest.Counts `json:"inventory,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// Live is the liveness probe. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Health reports the version, uptime and what the backend holds. It answers
// 503 when the backend cannot be read.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	counts, err := h.backend.Summary(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "down",
			Version:   h.version,
			Timestamp: time.Now(),
		})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Inventory: &counts,
		Timestamp: time.Now(),
	})
}

// Register mounts the probes on mux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /live", h.Live)
	mux.HandleFunc("GET /health", h.Health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
