package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/skillgate-go/internal/backend"
	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/core/identity"
	"github.com/yndnr/skillgate-go/internal/server/httpserver/handler"
	"github.com/yndnr/skillgate-go/internal/telemetry/logger"
)

// Authenticator resolves an Authorization header to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (identity.Identity, error)
}

// Backend is the lazily initialized service behind the gated mounts.
type Backend interface {
	EnsureReady(ctx context.Context) (backend.State, error)
	Responder(m backend.Mount) http.Handler
}

// Recorder receives gateway metrics. *metric.Registry implements it.
type Recorder interface {
	RecordRequest(mount, code string, seconds float64)
	RecordAuthFailure(code string)
	RecordRateLimited()
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, string, float64) {}
func (nopRecorder) RecordAuthFailure(string)              {}
func (nopRecorder) RecordRateLimited()                    {}

// Gateway authenticates gated requests and forwards them to the backend.
type Gateway struct {
	auth    Authenticator
	backend Backend
	metrics Recorder
	logger  logger.Logger
}

// NewGateway creates a Gateway. A nil recorder disables metrics.
func NewGateway(auth Authenticator, b Backend, rec Recorder, log logger.Logger) *Gateway {
	if rec == nil {
		rec = nopRecorder{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &Gateway{
		auth:    auth,
		backend: b,
		metrics: rec,
		logger:  log.With("component", "gateway"),
	}
}

// Mount returns the handler for one gated transport. Rate limiting is
// applied outside of it by the router.
func (g *Gateway) Mount(m backend.Mount) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			status := wrapped.statusCode
			p := recover()
			if p != nil {
				status = http.StatusInternalServerError
			}
			g.metrics.RecordRequest(m.String(), strconv.Itoa(status), time.Since(start).Seconds())
			if p != nil {
				panic(p)
			}
		}()

		g.dispatch(wrapped, r, m)
	})
}

func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request, m backend.Mount) {
	ctx := r.Context()
	if sid := sessionID(r); sid != "" {
		ctx = logger.WithSessionID(ctx, sid)
	}

	id, err := g.auth.Authenticate(ctx, r.Header.Get("Authorization"))
	if err != nil {
		code := domain.GetErrorCode(err)
		if code == "" {
			code = domain.CodeInternalServerError
		}
		g.metrics.RecordAuthFailure(code)
		if code == domain.CodeInternalServerError {
			logger.L(ctx).Error("authentication failed", "error", err)
		} else {
			logger.L(ctx).Debug("authentication rejected", "code", code)
		}
		handler.WriteDomainError(w, err)
		return
	}

	ctx, release := identity.Bind(ctx, id)
	defer release()

	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.identity = id.UserID
	}

	if _, err := g.backend.EnsureReady(ctx); err != nil {
		logger.L(ctx).Warn("backend not ready", "error", err)
		handler.WriteError(w, http.StatusServiceUnavailable,
			domain.CodeBackendUnavailable, "Backend unavailable")
		return
	}

	responder := g.backend.Responder(m)
	if responder == nil {
		// Reset by Shutdown between EnsureReady and here.
		handler.WriteError(w, http.StatusServiceUnavailable,
			domain.CodeBackendUnavailable, "Backend unavailable")
		return
	}

	responder.ServeHTTP(w, r.WithContext(ctx))
}

// sessionID returns the MCP session a request belongs to, if any.
func sessionID(r *http.Request) string {
	if sid := r.Header.Get("Mcp-Session-Id"); sid != "" {
		return sid
	}
	return r.URL.Query().Get("sessionId")
}
