package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sources are read on every scrape. Nil fields are skipped.
type Sources struct {
	// TrackedKeys returns the number of keys held by the local limiter.
	TrackedKeys func() int
	// RateLimitFallbacks returns how often the shared limiter fell back
	// to local state.
	RateLimitFallbacks func() int64
	// Credentials returns the number of stored users and tokens.
	Credentials func() (users, tokens int)
}

// Collector reports gauges that are cheaper to read on demand than to
// keep updated.
type Collector struct {
	src Sources

	trackedKeys *prometheus.Desc
	fallbacks   *prometheus.Desc
	users       *prometheus.Desc
	tokens      *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector over src.
func NewCollector(src Sources) *Collector {
	return &Collector{
		src: src,
		trackedKeys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ratelimit", "tracked_keys"),
			"Client keys currently held by the rate limiter.", nil, nil),
		fallbacks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ratelimit", "fallbacks_total"),
			"Rate limit checks answered locally because Redis failed.", nil, nil),
		users: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "users"),
			"Users in the credential store.", nil, nil),
		tokens: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "tokens"),
			"API tokens in the credential store.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	if c.src.TrackedKeys != nil {
		ch <- c.trackedKeys
	}
	if c.src.RateLimitFallbacks != nil {
		ch <- c.fallbacks
	}
	if c.src.Credentials != nil {
		ch <- c.users
		ch <- c.tokens
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.src.TrackedKeys != nil {
		ch <- prometheus.MustNewConstMetric(c.trackedKeys, prometheus.GaugeValue, float64(c.src.TrackedKeys()))
	}
	if c.src.RateLimitFallbacks != nil {
		ch <- prometheus.MustNewConstMetric(c.fallbacks, prometheus.CounterValue, float64(c.src.RateLimitFallbacks()))
	}
	if c.src.Credentials != nil {
		users, tokens := c.src.Credentials()
		ch <- prometheus.MustNewConstMetric(c.users, prometheus.GaugeValue, float64(users))
		ch <- prometheus.MustNewConstMetric(c.tokens, prometheus.GaugeValue, float64(tokens))
	}
}

// Register adds the collector to r.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}
