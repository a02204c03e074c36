package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr          = "0.0.0.0:8000"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultMetricsAddr       = "127.0.0.1:9090"
	DefaultMetricsPath       = "/metrics"

	DefaultTokenPrefix = "ask_live"

	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = 60 * time.Second
	DefaultSweepInterval     = time.Minute
	DefaultRedisAddr         = "127.0.0.1:6379"
	DefaultRedisKeyPrefix    = "skillgate:ratelimit:"

	DefaultStoreDriver     = StoreSQLite
	DefaultSQLitePath      = "/data/skillgate.db"
	DefaultSQLiteMaxConns  = 10
	DefaultSQLiteBusy      = 5 * time.Second
	DefaultBadgerDir       = "/data/badger"
	DefaultBadgerGCEvery   = 10 * time.Minute
	DefaultSkillsPath      = "/data/skills"
	DefaultMCPName         = "skillgate"
	DefaultKeepAlive       = 30 * time.Second
	DefaultBootstrapBudget = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

// Limiter backends.
const (
	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:              DefaultHTTPAddr,
				ReadHeaderTimeout: DefaultReadHeaderTimeout,
				ShutdownTimeout:   DefaultShutdownTimeout,
			},
			Metrics: MetricsConfig{
				Addr: DefaultMetricsAddr,
				Path: DefaultMetricsPath,
			},
		},
		Auth: AuthSection{
			TokenPrefix: DefaultTokenPrefix,
		},
		RateLimit: RateLimitSection{
			Requests:      DefaultRateLimitRequests,
			Window:        DefaultRateLimitWindow,
			SweepInterval: DefaultSweepInterval,
			Backend:       LimiterMemory,
			Redis: RedisConfig{
				Addr:      DefaultRedisAddr,
				KeyPrefix: DefaultRedisKeyPrefix,
			},
		},
		Store: StoreSection{
			Driver: DefaultStoreDriver,
			SQLite: SQLiteConfig{
				Path:         DefaultSQLitePath,
				MaxOpenConns: DefaultSQLiteMaxConns,
				BusyTimeout:  DefaultSQLiteBusy,
			},
			Badger: BadgerConfig{
				Dir:        DefaultBadgerDir,
				GCInterval: DefaultBadgerGCEvery,
				SyncWrites: true,
			},
		},
		Skills: SkillsSection{
			StoragePath: DefaultSkillsPath,
		},
		MCP: MCPSection{
			Name:              DefaultMCPName,
			KeepAliveInterval: DefaultKeepAlive,
			BootstrapTimeout:  DefaultBootstrapBudget,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
