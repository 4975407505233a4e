package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/chatframe/sessiond/internal/events"
	"github.com/chatframe/sessiond/internal/persist"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	persist persist.Store
	natsPub *events.NATSPublisher
}

// NewHealthHandler creates a new health handler. The NATS publisher may be
// nil when event fan-out is disabled.
func NewHealthHandler(ps persist.Store, natsPub *events.NATSPublisher) *HealthHandler {
	return &HealthHandler{
		persist: ps,
		natsPub: natsPub,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.persist.LastSessionID(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "persistence unavailable",
		})
		return
	}

	if h.natsPub != nil && !h.natsPub.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
