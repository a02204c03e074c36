package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skillgate"

// BackendStates lists the label values of the backend_state gauge.
var BackendStates = []string{"uninitialized", "initializing", "ready", "degraded"}

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Gateway
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthFailures    *prometheus.CounterVec

	// Rate limiting
	RateLimitDenied prometheus.Counter

	// Backend lifecycle
	BackendState     *prometheus.GaugeVec
	BackendBootstrap *prometheus.CounterVec
	BootstrapSeconds prometheus.Histogram
}

// NewRegistry creates a registry with Go and process collectors and all
// gateway metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Gated requests by mount and response status.",
		}, []string{"mount", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time spent in the gateway pipeline, by mount.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mount"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected authentication attempts by error code.",
		}, []string{"code"}),
		RateLimitDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "denied_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		BackendState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "state",
			Help:      "1 for the current backend lifecycle state, 0 otherwise.",
		}, []string{"state"}),
		BackendBootstrap: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "bootstrap_total",
			Help:      "Backend bootstrap attempts by result.",
		}, []string{"result"}),
		BootstrapSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "bootstrap_duration_seconds",
			Help:      "Duration of backend bootstrap attempts.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}),
	}

	reg.MustRegister(
		r.RequestsTotal,
		r.RequestDuration,
		r.AuthFailures,
		r.RateLimitDenied,
		r.BackendState,
		r.BackendBootstrap,
		r.BootstrapSeconds,
	)
	r.SetBackendState("uninitialized")

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() { global = NewRegistry() })
	return global
}

// Handler serves the process-wide registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Registerer exposes the registry for components that register their own
// collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns the /metrics handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry:          r.registry,
		EnableOpenMetrics: true,
	})
}

// RecordRequest counts a finished gated request.
func (r *Registry) RecordRequest(mount, code string, seconds float64) {
	r.RequestsTotal.WithLabelValues(mount, code).Inc()
	r.RequestDuration.WithLabelValues(mount).Observe(seconds)
}

// RecordAuthFailure counts a rejected credential.
func (r *Registry) RecordAuthFailure(code string) {
	r.AuthFailures.WithLabelValues(code).Inc()
}

// RecordRateLimited counts a request denied by the limiter.
func (r *Registry) RecordRateLimited() {
	r.RateLimitDenied.Inc()
}

// SetBackendState marks state as current. Unknown names are still
// recorded so a new state never goes missing.
func (r *Registry) SetBackendState(state string) {
	for _, s := range BackendStates {
		r.BackendState.WithLabelValues(s).Set(0)
	}
	r.BackendState.WithLabelValues(state).Set(1)
}

// RecordBootstrap counts a bootstrap attempt.
func (r *Registry) RecordBootstrap(err error, seconds float64) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.BackendBootstrap.WithLabelValues(result).Inc()
	r.BootstrapSeconds.Observe(seconds)
}
