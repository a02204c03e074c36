package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
	if Handler() == nil {
		t.Error("Handler() returned nil")
	}
}

func TestHandler_RuntimeCollectors(t *testing.T) {
	body := scrape(t, NewRegistry().Handler())

	for _, want := range []string{"go_goroutines", "process_", "skillgate_backend_state"} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestRecordRequest(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("mcp", "200", 0.01)
	r.RecordRequest("mcp", "200", 0.02)
	r.RecordRequest("sse", "401", 0.001)

	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("mcp", "200")); got != 2 {
		t.Errorf("requests{mcp,200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("sse", "401")); got != 1 {
		t.Errorf("requests{sse,401} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.RequestDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestAuthAndRateLimit(t *testing.T) {
	r := NewRegistry()

	r.RecordAuthFailure("TOKEN_REVOKED")
	r.RecordAuthFailure("TOKEN_REVOKED")
	r.RecordAuthFailure("INVALID_TOKEN_FORMAT")
	r.RecordRateLimited()

	if got := testutil.ToFloat64(r.AuthFailures.WithLabelValues("TOKEN_REVOKED")); got != 2 {
		t.Errorf("auth failures{TOKEN_REVOKED} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.RateLimitDenied); got != 1 {
		t.Errorf("ratelimit denied = %v, want 1", got)
	}
}

func TestSetBackendState(t *testing.T) {
	r := NewRegistry()

	if got := testutil.ToFloat64(r.BackendState.WithLabelValues("uninitialized")); got != 1 {
		t.Errorf("initial uninitialized = %v, want 1", got)
	}

	r.SetBackendState("ready")

	for _, s := range BackendStates {
		want := 0.0
		if s == "ready" {
			want = 1
		}
		if got := testutil.ToFloat64(r.BackendState.WithLabelValues(s)); got != want {
			t.Errorf("backend_state{%s} = %v, want %v", s, got, want)
		}
	}
}

func TestRecordBootstrap(t *testing.T) {
	r := NewRegistry()

	r.RecordBootstrap(nil, 0.5)
	r.RecordBootstrap(errors.New("boom"), 1)
	r.RecordBootstrap(errors.New("boom"), 1)

	if got := testutil.ToFloat64(r.BackendBootstrap.WithLabelValues("success")); got != 1 {
		t.Errorf("bootstrap{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.BackendBootstrap.WithLabelValues("failure")); got != 2 {
		t.Errorf("bootstrap{failure} = %v, want 2", got)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.RecordRequest("mcp", "200", 0.001)
				r.RecordAuthFailure("TOKEN_NOT_FOUND")
				r.SetBackendState("ready")
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("mcp", "200")); got != 1000 {
		t.Errorf("requests = %v, want 1000", got)
	}
	scrape(t, r.Handler())
}
