package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_Verifies(t *testing.T) {
	cfg := Default()
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify(Default()) error = %v", err)
	}

	if cfg.Auth.TokenPrefix != "ask_live" {
		t.Errorf("TokenPrefix = %q, want ask_live", cfg.Auth.TokenPrefix)
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.Window != 60*time.Second {
		t.Errorf("ratelimit = %d/%v, want 100/60s", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	if cfg.Skills.StoragePath != "/data/skills" {
		t.Errorf("StoragePath = %q, want /data/skills", cfg.Skills.StoragePath)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"empty addr", func(c *ServerConfig) { c.Server.HTTP.Addr = "" }, "server.http.addr"},
		{"half tls", func(c *ServerConfig) { c.Server.HTTP.TLSCertFile = "cert.pem" }, "tls_cert_file"},
		{"metrics path", func(c *ServerConfig) { c.Server.Metrics.Enabled = true; c.Server.Metrics.Path = "metrics" }, "server.metrics.path"},
		{"wildcard cors", func(c *ServerConfig) { c.Server.CORSOrigins = []string{"*"} }, "explicit origins"},
		{"bad origin", func(c *ServerConfig) { c.Server.CORSOrigins = []string{"example.com"} }, "invalid origin"},
		{"hostname proxy", func(c *ServerConfig) { c.Server.TrustedProxies = []string{"lb.internal"} }, "server.trusted_proxies"},
		{"bad cidr proxy", func(c *ServerConfig) { c.Server.TrustedProxies = []string{"10.0.0.0/40"} }, "server.trusted_proxies"},
		{"trailing underscore prefix", func(c *ServerConfig) { c.Auth.TokenPrefix = "ask_live_" }, "auth.token_prefix"},
		{"uppercase prefix", func(c *ServerConfig) { c.Auth.TokenPrefix = "ASK" }, "auth.token_prefix"},
		{"zero requests", func(c *ServerConfig) { c.RateLimit.Requests = 0 }, "ratelimit.requests"},
		{"zero window", func(c *ServerConfig) { c.RateLimit.Window = 0 }, "ratelimit.window"},
		{"unknown limiter", func(c *ServerConfig) { c.RateLimit.Backend = "memcached" }, "ratelimit.backend"},
		{"redis without addr", func(c *ServerConfig) { c.RateLimit.Backend = LimiterRedis; c.RateLimit.Redis.Addr = "" }, "ratelimit.redis.addr"},
		{"unknown driver", func(c *ServerConfig) { c.Store.Driver = "postgres" }, "store.driver"},
		{"pool too large", func(c *ServerConfig) { c.Store.SQLite.MaxOpenConns = 101 }, "max_open_conns"},
		{"pool zero", func(c *ServerConfig) { c.Store.SQLite.MaxOpenConns = 0 }, "max_open_conns"},
		{"badger without dir", func(c *ServerConfig) { c.Store.Driver = StoreBadger; c.Store.Badger.Dir = "" }, "store.badger.dir"},
		{"no skills path", func(c *ServerConfig) { c.Skills.StoragePath = "" }, "skills.storage_path"},
		{"bad level", func(c *ServerConfig) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatalf("Verify() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"wildcard cors in debug", func(c *ServerConfig) { c.Server.Debug = true; c.Server.CORSOrigins = []string{"*"} }},
		{"explicit origins", func(c *ServerConfig) { c.Server.CORSOrigins = []string{"https://app.example.com"} }},
		{"memory store", func(c *ServerConfig) { c.Store.Driver = StoreMemory; c.Store.SQLite.Path = "" }},
		{"single word prefix", func(c *ServerConfig) { c.Auth.TokenPrefix = "sg" }},
		{"redis limiter", func(c *ServerConfig) { c.RateLimit.Backend = LimiterRedis }},
		{"trusted proxies", func(c *ServerConfig) { c.Server.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.10", "fd00::/8"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Verify(cfg); err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

func TestVerify_ReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Server.HTTP.Addr = ""
	cfg.RateLimit.Requests = 0

	err := Verify(cfg)
	if err == nil {
		t.Fatal("Verify() error = nil")
	}
	for _, want := range []string{"server.http.addr", "ratelimit.requests"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Verify() error = %v, missing %q", err, want)
		}
	}
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.RateLimit.Redis.Password = "redis-password-1234"
	cfg.Server.CORSOrigins = []string{"https://app.example.com"}

	sanitized := Sanitize(cfg)

	if cfg.RateLimit.Redis.Password != "redis-password-1234" {
		t.Error("original config modified")
	}
	if got := sanitized.RateLimit.Redis.Password; got != "re***************34" {
		t.Errorf("masked password = %q", got)
	}
	sanitized.Server.CORSOrigins[0] = "changed"
	if cfg.Server.CORSOrigins[0] != "https://app.example.com" {
		t.Error("sanitized copy shares the origins slice")
	}

	if Sanitize(Default()).RateLimit.Redis.Password != "" {
		t.Error("empty password should stay empty")
	}
	if maskSecret("abc") != "****" {
		t.Errorf("maskSecret(short) = %q, want ****", maskSecret("abc"))
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skillgate.yaml")
	content := `
server:
  http:
    addr: "127.0.0.1:9000"
ratelimit:
  requests: 5
  window: 10s
store:
  driver: memory
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("SKILLGATE_SKILLS_STORAGE_PATH", "/srv/skills")
	t.Setenv("SKILLGATE_MCP_KEEP_ALIVE_INTERVAL", "15s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTP.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.HTTP.Addr)
	}
	if cfg.RateLimit.Requests != 5 || cfg.RateLimit.Window != 10*time.Second {
		t.Errorf("ratelimit = %d/%v, want 5/10s", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	if cfg.RateLimit.SweepInterval != DefaultSweepInterval {
		t.Errorf("SweepInterval = %v, want default", cfg.RateLimit.SweepInterval)
	}
	if cfg.Skills.StoragePath != "/srv/skills" {
		t.Errorf("StoragePath = %q, want env value", cfg.Skills.StoragePath)
	}
	if cfg.MCP.KeepAliveInterval != 15*time.Second {
		t.Errorf("KeepAliveInterval = %v, want 15s", cfg.MCP.KeepAliveInterval)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skillgate.yaml")
	if err := os.WriteFile(path, []byte("ratelimit:\n  requests: 0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "ratelimit.requests") {
		t.Errorf("Load() error = %v, want ratelimit.requests", err)
	}
}

func TestStoreSection_OpenOptions(t *testing.T) {
	s := Default().Store
	s.Driver = StoreBadger
	s.SetPath("/var/lib/skillgate/badger")
	s.Badger.GCInterval = 3 * time.Minute

	opts := s.OpenOptions(nil)
	if opts.Driver != StoreBadger {
		t.Errorf("Driver = %q, want %q", opts.Driver, StoreBadger)
	}
	if opts.Badger.Dir != "/var/lib/skillgate/badger" {
		t.Errorf("Badger.Dir = %q", opts.Badger.Dir)
	}
	if opts.Badger.Badger.GCInterval != 3*time.Minute {
		t.Errorf("GCInterval = %v, want 3m", opts.Badger.Badger.GCInterval)
	}
	if opts.SQLite.Path != DefaultSQLitePath {
		t.Errorf("SQLite.Path = %q, want untouched default", opts.SQLite.Path)
	}

	s.Driver = StoreSQLite
	s.SetPath("/tmp/gate.db")
	if got := s.OpenOptions(nil).SQLite.Path; got != "/tmp/gate.db" {
		t.Errorf("SQLite.Path = %q, want /tmp/gate.db", got)
	}
}
