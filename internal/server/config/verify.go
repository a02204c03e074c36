package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/yndnr/skillgate-go/internal/telemetry/logger"
)

var tokenPrefixPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9_]*[a-z0-9])?$`)

// Verify validates the configuration and reports every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyAuth(&cfg.Auth),
		verifyRateLimit(&cfg.RateLimit),
		verifyStore(&cfg.Store),
		verifySkills(&cfg.Skills),
		verifyMCP(&cfg.MCP),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error
	if cfg.HTTP.Addr == "" {
		errs = append(errs, errors.New("server.http.addr is required"))
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Addr == "" {
			errs = append(errs, errors.New("server.metrics.addr is required when metrics are enabled"))
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, errors.New("server.metrics.path must start with /"))
		}
	}
	for _, p := range cfg.TrustedProxies {
		if !validProxy(p) {
			errs = append(errs, fmt.Errorf("server.trusted_proxies: %q is not an address or CIDR", p))
		}
	}
	if !cfg.Debug {
		if slices.Contains(cfg.CORSOrigins, "*") {
			errs = append(errs, errors.New("server.cors_origins must list explicit origins unless server.debug is set"))
		}
		for _, o := range cfg.CORSOrigins {
			if o == "*" {
				continue
			}
			if u, err := url.Parse(o); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("server.cors_origins: invalid origin %q", o))
			}
		}
	}
	return errors.Join(errs...)
}

func validProxy(s string) bool {
	s = strings.TrimSpace(s)
	if _, err := netip.ParsePrefix(s); err == nil {
		return true
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

func verifyAuth(cfg *AuthSection) error {
	if !tokenPrefixPattern.MatchString(cfg.TokenPrefix) {
		return fmt.Errorf("auth.token_prefix %q must be lowercase letters, digits and inner underscores", cfg.TokenPrefix)
	}
	return nil
}

func verifyRateLimit(cfg *RateLimitSection) error {
	var errs []error
	if cfg.Requests < 1 {
		errs = append(errs, errors.New("ratelimit.requests must be at least 1"))
	}
	if cfg.Window <= 0 {
		errs = append(errs, errors.New("ratelimit.window must be positive"))
	}
	if cfg.SweepInterval <= 0 {
		errs = append(errs, errors.New("ratelimit.sweep_interval must be positive"))
	}
	switch cfg.Backend {
	case LimiterMemory:
	case LimiterRedis:
		if cfg.Redis.Addr == "" {
			errs = append(errs, errors.New("ratelimit.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("ratelimit.backend %q must be memory or redis", cfg.Backend))
	}
	return errors.Join(errs...)
}

func verifyStore(cfg *StoreSection) error {
	switch cfg.Driver {
	case StoreMemory:
		return nil
	case StoreSQLite:
		var errs []error
		if cfg.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required"))
		}
		if cfg.SQLite.MaxOpenConns < 1 || cfg.SQLite.MaxOpenConns > 100 {
			errs = append(errs, errors.New("store.sqlite.max_open_conns must be between 1 and 100"))
		}
		return errors.Join(errs...)
	case StoreBadger:
		if cfg.Badger.Dir == "" {
			return errors.New("store.badger.dir is required")
		}
		return nil
	default:
		return fmt.Errorf("store.driver %q must be memory, sqlite or badger", cfg.Driver)
	}
}

func verifySkills(cfg *SkillsSection) error {
	if cfg.StoragePath == "" {
		return errors.New("skills.storage_path is required")
	}
	return nil
}

func verifyMCP(cfg *MCPSection) error {
	var errs []error
	if cfg.Name == "" {
		errs = append(errs, errors.New("mcp.name is required"))
	}
	if cfg.KeepAliveInterval <= 0 {
		errs = append(errs, errors.New("mcp.keep_alive_interval must be positive"))
	}
	if cfg.BootstrapTimeout < 0 {
		errs = append(errs, errors.New("mcp.bootstrap_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) error {
	var errs []error
	if !logger.ValidLevel(cfg.Level) {
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", cfg.Level))
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", cfg.Format))
	}
	return errors.Join(errs...)
}
