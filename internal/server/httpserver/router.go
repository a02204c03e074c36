package httpserver

import (
	"net/http"
	"slices"

	"github.com/yndnr/skillgate-go/internal/backend"
	"github.com/yndnr/skillgate-go/internal/ratelimit"
	"github.com/yndnr/skillgate-go/internal/server/httpserver/handler"
	"github.com/yndnr/skillgate-go/internal/telemetry/logger"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Gateway dispatches gated requests.
	Gateway *Gateway

	// Limiter guards the gated mounts (nil = unlimited).
	Limiter ratelimit.Limiter

	// Probe reports backend readiness on /ready.
	Probe handler.ReadinessProbe

	// Metrics receives gateway metrics (nil = disabled).
	Metrics Recorder

	// Logger for access and error logging.
	Logger logger.Logger

	// TrustedProxies are the peers allowed to set forwarding headers.
	TrustedProxies TrustedProxies

	// CORSAllowedOrigins enables CORS for the listed origins.
	CORSAllowedOrigins []string

	// EnableAudit enables the access log.
	EnableAudit bool
}

// NewRouter builds the top-level handler.
//
// Order on gated mounts: RequestID -> Audit -> Recover -> CORS -> RateLimit
// -> Gateway. Probes skip CORS, rate limiting and authentication.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	probes := handler.New(cfg.Probe, slogOf(log))

	common := []Middleware{RequestID()}
	if cfg.EnableAudit {
		common = append(common, Audit(log.With("component", "access"), cfg.TrustedProxies))
	}
	common = append(common, Recover(log))

	gated := append(slices.Clone(common), CORS(cfg.CORSAllowedOrigins))
	if cfg.Limiter != nil {
		gated = append(gated, RateLimit(cfg.Limiter, cfg.TrustedProxies, cfg.Metrics, log))
	}

	mcpHandler := Chain(cfg.Gateway.Mount(backend.MountHTTP), gated...)
	sseHandler := Chain(cfg.Gateway.Mount(backend.MountSSE), gated...)

	mux := http.NewServeMux()

	mux.Handle("GET /health", Chain(probes, common...))
	mux.Handle("GET /ready", Chain(probes, common...))

	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/mcp/", mcpHandler)
	mux.Handle(backend.SSEEndpoint, sseHandler)
	mux.Handle(backend.SSEEndpoint+"/", sseHandler)

	return mux
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		EnableAudit: true,
	}
}
