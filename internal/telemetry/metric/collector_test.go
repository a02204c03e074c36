package metric

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	keys := 3
	c := NewCollector(Sources{
		TrackedKeys:        func() int { return keys },
		RateLimitFallbacks: func() int64 { return 7 },
		Credentials:        func() (int, int) { return 2, 5 },
	})

	want := `
# HELP skillgate_ratelimit_tracked_keys Client keys currently held by the rate limiter.
# TYPE skillgate_ratelimit_tracked_keys gauge
skillgate_ratelimit_tracked_keys 3
# HELP skillgate_store_tokens API tokens in the credential store.
# TYPE skillgate_store_tokens gauge
skillgate_store_tokens 5
# HELP skillgate_store_users Users in the credential store.
# TYPE skillgate_store_users gauge
skillgate_store_users 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(want),
		"skillgate_ratelimit_tracked_keys", "skillgate_store_users", "skillgate_store_tokens")
	if err != nil {
		t.Error(err)
	}

	keys = 9
	if got := testutil.CollectAndCount(c, "skillgate_ratelimit_tracked_keys"); got != 1 {
		t.Errorf("tracked_keys series = %d, want 1", got)
	}
}

func TestCollector_SkipsNilSources(t *testing.T) {
	c := NewCollector(Sources{TrackedKeys: func() int { return 1 }})

	if got := testutil.CollectAndCount(c); got != 1 {
		t.Errorf("collected %d metrics, want 1", got)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	c := NewCollector(Sources{Credentials: func() (int, int) { return 1, 1 }})

	if err := r.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(c); err == nil {
		t.Error("second Register() succeeded, want duplicate error")
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, "skillgate_store_users 1") {
		t.Errorf("scrape missing store users:\n%s", body)
	}
}
