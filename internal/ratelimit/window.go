package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yndnr/skillgate-go/pkg/cmap"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	// Check records an attempt at now and reports whether it is allowed.
	Check(ctx context.Context, key string, now time.Time) (bool, error)

	// Window returns the current window length.
	Window() time.Duration
}

// hitLog holds the admitted timestamps of one key, oldest first.
// It is only touched under its cmap shard lock.
type hitLog struct {
	hits []time.Time
}

// prune drops timestamps at or before cutoff.
func (w *hitLog) prune(cutoff time.Time) {
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(w.hits, w.hits[i:])
	clear(w.hits[n:])
	w.hits = w.hits[:n]
}

// SlidingWindow is an in-process sliding-window limiter.
type SlidingWindow struct {
	keys   *cmap.Map[*hitLog]
	limit  atomic.Int64
	window atomic.Int64 // nanoseconds
}

// NewSlidingWindow creates a limiter admitting limit requests per window.
func NewSlidingWindow(limit int, window time.Duration) (*SlidingWindow, error) {
	sw := &SlidingWindow{keys: cmap.New[*hitLog]()}
	if err := sw.Reconfigure(limit, window); err != nil {
		return nil, err
	}
	return sw, nil
}

// Reconfigure changes the limit and window. Existing timestamps are kept
// and judged against the new values from the next evaluation on.
func (sw *SlidingWindow) Reconfigure(limit int, window time.Duration) error {
	if limit < 1 {
		return fmt.Errorf("ratelimit: limit must be >= 1, got %d", limit)
	}
	if window <= 0 {
		return fmt.Errorf("ratelimit: window must be > 0, got %s", window)
	}
	sw.limit.Store(int64(limit))
	sw.window.Store(int64(window))
	return nil
}

// Limit returns the current request limit.
func (sw *SlidingWindow) Limit() int {
	return int(sw.limit.Load())
}

// Window returns the current window length.
func (sw *SlidingWindow) Window() time.Duration {
	return time.Duration(sw.window.Load())
}

// Allow reports whether a request for key at now is admitted, and records
// it if so. Evaluation for a single key is atomic.
func (sw *SlidingWindow) Allow(key string, now time.Time) bool {
	limit := int(sw.limit.Load())
	cutoff := now.Add(-sw.Window())

	allowed := false
	sw.keys.Update(key, func(w *hitLog, exists bool) *hitLog {
		if !exists {
			w = &hitLog{}
		}
		w.prune(cutoff)
		if len(w.hits) >= limit {
			return w
		}
		w.hits = append(w.hits, now)
		allowed = true
		return w
	})
	return allowed
}

// Check implements Limiter. It never fails.
func (sw *SlidingWindow) Check(_ context.Context, key string, now time.Time) (bool, error) {
	return sw.Allow(key, now), nil
}

// Sweep prunes every key against now and drops keys left empty.
// It returns the number of keys removed.
func (sw *SlidingWindow) Sweep(now time.Time) int {
	cutoff := now.Add(-sw.Window())
	return sw.keys.RemoveIf(func(_ string, w *hitLog) bool {
		w.prune(cutoff)
		return len(w.hits) == 0
	})
}

// Len returns the number of tracked keys.
func (sw *SlidingWindow) Len() int {
	return sw.keys.Count()
}

// Run sweeps the table every interval until ctx is done.
func (sw *SlidingWindow) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			sw.Sweep(now)
		}
	}
}
