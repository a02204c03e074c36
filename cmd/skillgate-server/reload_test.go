package main

import (
	"testing"
	"time"

	"github.com/yndnr/skillgate-go/internal/ratelimit"
	"github.com/yndnr/skillgate-go/internal/server/config"
	"github.com/yndnr/skillgate-go/internal/telemetry/logger"
)

func newReloader(t *testing.T) (*reloader, *ratelimit.SlidingWindow) {
	t.Helper()
	cfg := config.Default()
	sw, err := ratelimit.NewSlidingWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if err != nil {
		t.Fatal(err)
	}
	return &reloader{current: cfg, limiter: sw, log: logger.Discard()}, sw
}

func TestReloader_RateLimit(t *testing.T) {
	r, sw := newReloader(t)

	next := config.Default()
	next.RateLimit.Requests = 5
	next.RateLimit.Window = 10 * time.Second
	r.apply(next)

	if sw.Limit() != 5 || sw.Window() != 10*time.Second {
		t.Errorf("limiter = (%d, %v), want (5, 10s)", sw.Limit(), sw.Window())
	}
	if r.current.RateLimit.Requests != 5 {
		t.Errorf("current requests = %d, want 5", r.current.RateLimit.Requests)
	}
}

func TestReloader_LogLevel(t *testing.T) {
	old := logger.GetLevel()
	t.Cleanup(func() { logger.SetLevel(old) })

	r, _ := newReloader(t)
	next := config.Default()
	next.Log.Level = "debug"
	r.apply(next)

	if got := logger.GetLevel(); got != "debug" {
		t.Errorf("level = %q, want debug", got)
	}
}

func TestRestartRequired(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.ServerConfig)
		want   bool
	}{
		{"unchanged", func(*config.ServerConfig) {}, false},
		{"log level only", func(c *config.ServerConfig) { c.Log.Level = "error" }, false},
		{"rate limit only", func(c *config.ServerConfig) { c.RateLimit.Requests = 1 }, false},
		{"listen address", func(c *config.ServerConfig) { c.Server.HTTP.Addr = ":9999" }, true},
		{"cors origins", func(c *config.ServerConfig) { c.Server.CORSOrigins = []string{"https://a.example"} }, true},
		{"trusted proxies", func(c *config.ServerConfig) { c.Server.TrustedProxies = []string{"10.0.0.0/8"} }, true},
		{"store driver", func(c *config.ServerConfig) { c.Store.Driver = config.StoreBadger }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := config.Default()
			tt.mutate(next)
			if got := restartRequired(config.Default(), next); got != tt.want {
				t.Errorf("restartRequired() = %v, want %v", got, tt.want)
			}
		})
	}
}
