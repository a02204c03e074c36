package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yndnr/skillgate-go/internal/core/domain"
)

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard error body.
func WriteError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("X-Error-Code", code)
	WriteJSON(w, status, NewErrorResponse(code, detail))
}

// WriteDomainError writes err with the status its code maps to. Errors that
// are not domain errors are reported as INTERNAL_SERVER_ERROR without
// exposing their text.
func WriteDomainError(w http.ResponseWriter, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) || de.Code == domain.CodeInternalServerError {
		WriteError(w, http.StatusInternalServerError, domain.CodeInternalServerError, "Internal Server Error")
		return
	}
	detail := de.Message
	if de.Details != "" {
		detail = de.Message + ": " + de.Details
	}
	WriteError(w, domain.HTTPStatus(de.Code), de.Code, detail)
}

// ReadinessProbe reports whether the gated backend is serving.
type ReadinessProbe interface {
	// Readiness returns whether the backend is ready and its state name.
	Readiness() (ready bool, state string)
}

// Handler serves the probe endpoints.
type Handler struct {
	probe  ReadinessProbe
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a new Handler. A nil probe reports ready.
func New(probe ReadinessProbe, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		probe:  probe,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
}
