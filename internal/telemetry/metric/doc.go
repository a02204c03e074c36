// Package metric provides Prometheus metrics for SkillGate.
//
//   - prometheus.go: the registry, gateway counters and the /metrics handler
//   - collector.go: scrape-time gauges read from the limiter and the store
//
// All metric names carry the "skillgate" namespace.
package metric
