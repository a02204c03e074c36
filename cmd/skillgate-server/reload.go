package main

import (
	"reflect"
	"sync"

	"github.com/yndnr/skillgate-go/internal/ratelimit"
	"github.com/yndnr/skillgate-go/internal/server/config"
	"github.com/yndnr/skillgate-go/internal/telemetry/logger"
)

// reloader applies the hot-reloadable subset of a new configuration.
type reloader struct {
	mu      sync.Mutex
	current *config.ServerConfig
	limiter *ratelimit.SlidingWindow
	log     logger.Logger
}

func (r *reloader) apply(next *config.ServerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current
	if next.Log.Level != cur.Log.Level {
		logger.SetLevel(next.Log.Level)
		r.log.Info("log level changed", "from", cur.Log.Level, "to", next.Log.Level)
		cur.Log.Level = next.Log.Level
	}

	rl := next.RateLimit
	if rl.Requests != cur.RateLimit.Requests || rl.Window != cur.RateLimit.Window {
		if err := r.limiter.Reconfigure(rl.Requests, rl.Window); err != nil {
			r.log.Warn("rate limit reload rejected", "error", err)
		} else {
			r.log.Info("rate limit changed", "requests", rl.Requests, "window", rl.Window)
			cur.RateLimit.Requests, cur.RateLimit.Window = rl.Requests, rl.Window
		}
	}

	if restartRequired(cur, next) {
		r.log.Warn("configuration changes outside log.level and ratelimit need a restart")
	}
}

// restartRequired reports whether next differs from cur in a setting that
// is only read at startup.
func restartRequired(cur, next *config.ServerConfig) bool {
	a, b := *cur, *next
	a.Log.Level, b.Log.Level = "", ""
	a.RateLimit.Requests, b.RateLimit.Requests = 0, 0
	a.RateLimit.Window, b.RateLimit.Window = 0, 0
	return !reflect.DeepEqual(a, b)
}
