package config

import "time"

// ServerConfig is the root configuration for skillgate-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Auth      AuthSection      `koanf:"auth"`
	RateLimit RateLimitSection `koanf:"ratelimit"`
	Store     StoreSection     `koanf:"store"`
	Skills    SkillsSection    `koanf:"skills"`
	MCP       MCPSection       `koanf:"mcp"`
	Log       LogSection       `koanf:"log"`
}

// ServerSection configures the listeners.
type ServerSection struct {
	HTTP        HTTPConfig    `koanf:"http"`
	Metrics     MetricsConfig `koanf:"metrics"`
	CORSOrigins []string      `koanf:"cors_origins"`
	// TrustedProxies are CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For and X-Real-IP headers identify the client.
	TrustedProxies []string `koanf:"trusted_proxies"`
	// Debug relaxes CORS validation.
	Debug bool `koanf:"debug"`
}

// HTTPConfig configures the gateway listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	TLSCertFile       string        `koanf:"tls_cert_file"`
	TLSKeyFile        string        `koanf:"tls_key_file"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	Path    string `koanf:"path"`
}

// AuthSection configures bearer token validation.
type AuthSection struct {
	// TokenPrefix is the token prefix without the trailing underscore.
	TokenPrefix string `koanf:"token_prefix"`
}

// RateLimitSection configures the sliding-window limiter.
type RateLimitSection struct {
	Requests      int           `koanf:"requests"`
	Window        time.Duration `koanf:"window"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	// Backend is "memory" or "redis".
	Backend string      `koanf:"backend"`
	Redis   RedisConfig `koanf:"redis"`
}

// RedisConfig configures the shared limiter.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// StoreSection selects and configures the credential store.
type StoreSection struct {
	// Driver is "memory", "sqlite" or "badger".
	Driver string       `koanf:"driver"`
	SQLite SQLiteConfig `koanf:"sqlite"`
	Badger BadgerConfig `koanf:"badger"`
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	Path         string        `koanf:"path"`
	MaxOpenConns int           `koanf:"max_open_conns"`
	BusyTimeout  time.Duration `koanf:"busy_timeout"`
}

// BadgerConfig configures the Badger store.
type BadgerConfig struct {
	Dir        string        `koanf:"dir"`
	GCInterval time.Duration `koanf:"gc_interval"`
	SyncWrites bool          `koanf:"sync_writes"`
}

// SkillsSection configures the skill repository.
type SkillsSection struct {
	StoragePath string `koanf:"storage_path"`
}

// MCPSection configures the MCP backend.
type MCPSection struct {
	Name string `koanf:"name"`
	// Version defaults to the build version.
	Version string `koanf:"version"`
	// BaseURL is advertised to SSE clients for the message endpoint.
	BaseURL           string        `koanf:"base_url"`
	KeepAliveInterval time.Duration `koanf:"keep_alive_interval"`
	BootstrapTimeout  time.Duration `koanf:"bootstrap_timeout"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
