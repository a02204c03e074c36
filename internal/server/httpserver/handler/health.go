package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/skillgate-go/internal/core/domain"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

// handleReady handles GET /ready.
func (h *Handler) handleReady(w http.ResponseWriter, _ *http.Request) {
	ready, state := true, "ready"
	if h.probe != nil {
		ready, state = h.probe.Readiness()
	}

	resp := ReadyResponse{
		Status:    "ready",
		State:     state,
		Timestamp: timeNow().UTC().Format(time.RFC3339),
	}
	if ready {
		WriteJSON(w, http.StatusOK, resp)
		return
	}

	resp.Status = "unavailable"
	resp.Code = domain.CodeBackendUnavailable
	w.Header().Set("X-Error-Code", domain.CodeBackendUnavailable)
	WriteJSON(w, http.StatusServiceUnavailable, resp)
}
