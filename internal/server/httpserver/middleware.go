package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/ratelimit"
	"github.com/yndnr/skillgate-go/internal/server/httpserver/handler"
	"github.com/yndnr/skillgate-go/internal/telemetry/logger"
)

type contextKey string

const (
	// ContextKeyStartTime is the context key for request start time.
	ContextKeyStartTime contextKey = "start_time"

	requestInfoKey contextKey = "request_info"
)

// requestInfo is filled in by inner handlers for the access log, which
// runs after the identity binding has been released.
type requestInfo struct {
	identity string
}

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first one runs first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID assigns every request an ID, reusing X-Request-ID when the
// client sends a well-formed one.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = context.WithValue(ctx, ContextKeyStartTime, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Audit writes one access log line per request.
func Audit(log logger.Logger, proxies TrustedProxies) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{}
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), requestInfoKey, info)))

			attrs := []any{
				"request_id", logger.RequestIDFromContext(r.Context()),
				"client_ip", proxies.ClientIP(r),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if info.identity != "" {
				attrs = append(attrs, "identity", info.identity)
			}

			line := r.Method + " " + r.URL.Path + " " + strconv.Itoa(wrapped.statusCode)
			switch {
			case wrapped.statusCode >= 500:
				log.Error(line, attrs...)
			case wrapped.statusCode >= 400:
				log.Warn(line, attrs...)
			default:
				log.Info(line, attrs...)
			}
		})
	}
}

// Recover turns a panic into a 500 with the standard error body. It runs
// deferred calls of inner handlers first, so identity bindings are already
// released when the response is written. A panic after the response has
// started, such as mid SSE stream, is only logged.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.L(r.Context()).Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"response_started", wrapped.wroteHeader,
					)
					if wrapped.wroteHeader {
						return
					}
					handler.WriteError(w, http.StatusInternalServerError,
						domain.CodeInternalServerError, "Internal Server Error")
				}
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}

// CORS echoes allowed origins back with credentials enabled. An empty list
// disables CORS; "*" matches any origin.
func CORS(allowedOrigins []string) Middleware {
	return func(next http.Handler) http.Handler {
		if len(allowedOrigins) == 0 {
			return next
		}
		wildcard := slices.Contains(allowedOrigins, "*")

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !(wildcard || slices.Contains(allowedOrigins, origin)) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id, X-Request-ID, X-Error-Code, Retry-After")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID, X-Request-ID")
				h.Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit rejects clients that exceed the limiter's budget with 429 and
// a Retry-After of one window. Clients are keyed by proxies.ClientIP.
// Limiter errors let the request through.
func RateLimit(limiter ratelimit.Limiter, proxies TrustedProxies, rec Recorder, log logger.Logger) Middleware {
	if rec == nil {
		rec = nopRecorder{}
	}
	warn := rate.Sometimes{Interval: 10 * time.Second}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := proxies.ClientIP(r)
			allowed, err := limiter.Check(r.Context(), ip, time.Now())
			if err != nil {
				logger.L(r.Context()).Error("rate limit check failed", "client_ip", ip, "error", err)
				allowed = true
			}
			if !allowed {
				rec.RecordRateLimited()
				warn.Do(func() {
					log.Warn("rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
				})
				w.Header().Set("Retry-After", retryAfter(limiter.Window()))
				handler.WriteError(w, http.StatusTooManyRequests,
					domain.CodeRateLimitExceeded, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(window time.Duration) string {
	secs := int64((window + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

// responseWriter wraps http.ResponseWriter to capture status code. It keeps
// Flush reachable so SSE streams pass through.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) Flush() {
	w.wroteHeader = true
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// slogOf returns the *slog.Logger behind l.
func slogOf(l logger.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l.Slog()
}
