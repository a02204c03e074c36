package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func mustWindow(t testing.TB, limit int, window time.Duration) *SlidingWindow {
	t.Helper()
	sw, err := NewSlidingWindow(limit, window)
	if err != nil {
		t.Fatalf("NewSlidingWindow() error = %v", err)
	}
	return sw
}

func TestNewSlidingWindow_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		window time.Duration
	}{
		{"zero limit", 0, time.Second},
		{"negative limit", -1, time.Second},
		{"zero window", 1, 0},
		{"negative window", 1, -time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSlidingWindow(tt.limit, tt.window); err == nil {
				t.Error("NewSlidingWindow() error = nil, want error")
			}
		})
	}
}

func TestAllow_SingleSlot(t *testing.T) {
	sw := mustWindow(t, 1, 60*time.Second)

	steps := []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{time.Second, false},
		{59 * time.Second, false},
		{60 * time.Second, true}, // exactly W after the admitted request
		{61 * time.Second, false},
	}
	for _, s := range steps {
		if got := sw.Allow("k", t0.Add(s.at)); got != s.want {
			t.Errorf("Allow(t+%s) = %v, want %v", s.at, got, s.want)
		}
	}
}

func TestAllow_ExactlyN(t *testing.T) {
	const n = 5
	sw := mustWindow(t, n, time.Minute)

	for i := 0; i < n; i++ {
		if !sw.Allow("k", t0.Add(time.Duration(i)*time.Millisecond)) {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
	if sw.Allow("k", t0.Add(n*time.Millisecond)) {
		t.Errorf("request %d allowed, want denied", n+1)
	}
}

func TestAllow_DenialNotRecorded(t *testing.T) {
	sw := mustWindow(t, 1, 10*time.Second)

	sw.Allow("k", t0)
	// Denied attempts inside the window must not extend it.
	for i := 1; i < 10; i++ {
		if sw.Allow("k", t0.Add(time.Duration(i)*time.Second)) {
			t.Fatalf("Allow(t+%ds) = true, want false", i)
		}
	}
	if !sw.Allow("k", t0.Add(10*time.Second)) {
		t.Error("Allow(t+10s) = false, want true: denials should not be recorded")
	}
}

func TestAllow_KeysIndependent(t *testing.T) {
	sw := mustWindow(t, 1, time.Minute)

	if !sw.Allow("a", t0) {
		t.Error("Allow(a) = false, want true")
	}
	if !sw.Allow("b", t0) {
		t.Error("Allow(b) = false, want true")
	}
	if sw.Allow("a", t0) {
		t.Error("second Allow(a) = true, want false")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	const limit = 50
	sw := mustWindow(t, limit, time.Minute)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sw.Allow("shared", t0) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != limit {
		t.Errorf("allowed = %d, want %d", got, limit)
	}
}

func TestSweep(t *testing.T) {
	sw := mustWindow(t, 10, time.Minute)

	for i := 0; i < 10; i++ {
		sw.Allow(fmt.Sprintf("old-%d", i), t0)
	}
	sw.Allow("fresh", t0.Add(50*time.Second))

	if got := sw.Sweep(t0.Add(59 * time.Second)); got != 0 {
		t.Errorf("Sweep() inside window removed %d, want 0", got)
	}
	if got := sw.Sweep(t0.Add(61 * time.Second)); got != 10 {
		t.Errorf("Sweep() removed %d, want 10", got)
	}
	if got := sw.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestReconfigure(t *testing.T) {
	sw := mustWindow(t, 1, time.Minute)
	sw.Allow("k", t0)

	if err := sw.Reconfigure(2, time.Minute); err != nil {
		t.Fatalf("Reconfigure() error = %v", err)
	}
	if !sw.Allow("k", t0.Add(time.Second)) {
		t.Error("Allow() after raising limit = false, want true")
	}
	if sw.Limit() != 2 {
		t.Errorf("Limit() = %d, want 2", sw.Limit())
	}

	if err := sw.Reconfigure(0, time.Minute); err == nil {
		t.Error("Reconfigure(0) error = nil, want error")
	}
	if sw.Limit() != 2 {
		t.Errorf("Limit() after rejected Reconfigure = %d, want 2", sw.Limit())
	}
}

func TestCheck(t *testing.T) {
	sw := mustWindow(t, 1, time.Minute)
	var l Limiter = sw

	ok, err := l.Check(context.Background(), "k", t0)
	if err != nil || !ok {
		t.Errorf("Check() = (%v, %v), want (true, nil)", ok, err)
	}
	if l.Window() != time.Minute {
		t.Errorf("Window() = %s, want 1m", l.Window())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	sw := mustWindow(t, 1, time.Millisecond)
	sw.Allow("k", time.Now().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx, 5*time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for sw.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sw.Len() != 0 {
		t.Error("janitor did not sweep stale key")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func BenchmarkAllow(b *testing.B) {
	sw := mustWindow(b, 100, time.Minute)
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			sw.Allow(fmt.Sprintf("10.0.0.%d", i%64), time.Now())
			i++
		}
	})
}
