package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/skillgate-go/internal/backend"
	"github.com/yndnr/skillgate-go/internal/core/service"
	"github.com/yndnr/skillgate-go/internal/infra/buildinfo"
	"github.com/yndnr/skillgate-go/internal/infra/confloader"
	"github.com/yndnr/skillgate-go/internal/infra/shutdown"
	"github.com/yndnr/skillgate-go/internal/infra/tlsroots"
	"github.com/yndnr/skillgate-go/internal/ratelimit"
	"github.com/yndnr/skillgate-go/internal/server/config"
	"github.com/yndnr/skillgate-go/internal/server/httpserver"
	"github.com/yndnr/skillgate-go/internal/storage"
	"github.com/yndnr/skillgate-go/internal/telemetry/logger"
	"github.com/yndnr/skillgate-go/internal/telemetry/metric"
)

const program = "skillgate-server"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", os.Getenv("SKILLGATE_CONFIG"), "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String(program))
		return nil
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting "+program,
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := metric.NewRegistry()
	sd := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout)

	// Storage
	opts := cfg.Store.OpenOptions(log.Slog())
	opts.Registerer = reg.Registerer()
	store, err := storage.Open(ctx, opts)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	sd.OnShutdown("store", func(context.Context) error { return store.Close() })
	log.Info("credential store opened", "driver", store.Driver)

	// Rate limiting
	// Startup failures past this point still run the registered hooks.
	fail := func(err error) error { return errors.Join(err, sd.Run()) }

	local, limiter, err := initLimiter(ctx, cfg, log)
	if err != nil {
		return fail(err)
	}
	if closer, ok := limiter.(interface{ Close() error }); ok {
		sd.OnShutdown("ratelimit", func(context.Context) error { return closer.Close() })
	}

	// Backend
	mcpVersion := cfg.MCP.Version
	if mcpVersion == "" {
		mcpVersion = info.Version
	}
	initializer := backend.NewInitializer(
		backend.NewMCPFactory(backend.MCPOptions{
			Name:              cfg.MCP.Name,
			Version:           mcpVersion,
			SkillsRoot:        cfg.Skills.StoragePath,
			BaseURL:           cfg.MCP.BaseURL,
			KeepAliveInterval: cfg.MCP.KeepAliveInterval,
			Logger:            log.Slog(),
		}),
		backend.Options{
			Logger:           log.Slog(),
			BootstrapTimeout: cfg.MCP.BootstrapTimeout,
			OnTransition:     func(s backend.State) { reg.SetBackendState(s.String()) },
			OnBootstrap: func(err error, elapsed time.Duration) {
				reg.RecordBootstrap(err, elapsed.Seconds())
			},
		},
	)
	reg.SetBackendState(initializer.State().String())
	sd.OnShutdown("backend", initializer.Shutdown)

	if err := reg.Register(metric.NewCollector(collectorSources(store, local, limiter))); err != nil {
		return fail(fmt.Errorf("register collector: %w", err))
	}

	// HTTP
	auth := service.NewAuthenticator(store.Repository, &service.AuthenticatorConfig{
		TokenPrefix: cfg.Auth.TokenPrefix,
		Logger:      log.Slog(),
	})
	proxies, err := httpserver.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return fail(err)
	}
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Gateway:            httpserver.NewGateway(auth, initializer, reg, log),
		Limiter:            limiter,
		Probe:              initializer,
		Metrics:            reg,
		Logger:             log,
		TrustedProxies:     proxies,
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		EnableAudit:        true,
	})
	srvCfg := httpserver.ServerConfig{
		Addr:              cfg.Server.HTTP.Addr,
		ReadHeaderTimeout: cfg.Server.HTTP.ReadHeaderTimeout,
	}
	var keyPair *tlsroots.KeyPair
	if cfg.Server.HTTP.TLSCertFile != "" {
		keyPair, err = tlsroots.NewKeyPair(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile, log.Slog())
		if err != nil {
			return fail(err)
		}
		srvCfg.GetCertificate = keyPair.GetCertificate
	}
	srv := httpserver.New(srvCfg, router)

	ln, err := net.Listen("tcp", cfg.Server.HTTP.Addr)
	if err != nil {
		return fail(fmt.Errorf("listen %s: %w", cfg.Server.HTTP.Addr, err))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", "addr", ln.Addr().String(), "tls", srvCfg.TLS())
		return srv.Serve(ln)
	})
	sd.OnShutdown("http", srv.Shutdown)

	if keyPair != nil {
		g.Go(func() error {
			if err := keyPair.Run(gctx); err != nil {
				log.Warn("certificate rotation disabled", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return local.Run(gctx, cfg.RateLimit.SweepInterval)
	})

	if cfg.Server.Metrics.Enabled {
		ms, err := startMetrics(g, cfg.Server.Metrics, reg, log)
		if err != nil {
			cancel()
			return errors.Join(err, sd.Run(), g.Wait())
		}
		sd.OnShutdown("metrics", ms.Shutdown)
	}

	// Eager start. Requests still take the lazy path if this loses the race.
	g.Go(func() error {
		state, err := initializer.EnsureReady(gctx)
		if err != nil {
			log.Warn("backend bootstrap abandoned", "error", err)
			return nil
		}
		log.Info("backend bootstrap finished", "state", state.String())
		return nil
	})

	if *configFile != "" {
		w, err := watchConfig(*configFile, cfg, local, log)
		if err != nil {
			log.Warn("configuration hot reload disabled", "error", err)
		} else {
			sd.OnShutdown("watcher", func(context.Context) error { return w.Stop() })
		}
	}

	// A listener failing takes the whole process down.
	g.Go(func() error {
		<-gctx.Done()
		sd.Trigger()
		return nil
	})

	log.Info("server started, press Ctrl+C to stop")
	shutdownErr := sd.Wait(ctx)
	cancel()

	if err := errors.Join(shutdownErr, g.Wait()); err != nil {
		log.Error("server stopped with errors", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// initLogger initializes the structured logger and installs it as the
// process default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:         cfg.Log.Level,
		Format:        cfg.Log.Format,
		Output:        os.Stdout,
		TokenPrefixes: []string{cfg.Auth.TokenPrefix + "_"},
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// initLimiter builds the local window and, for the redis backend, the shared
// limiter in front of it.
func initLimiter(ctx context.Context, cfg *config.ServerConfig, log logger.Logger) (*ratelimit.SlidingWindow, ratelimit.Limiter, error) {
	rl := cfg.RateLimit
	local, err := ratelimit.NewSlidingWindow(rl.Requests, rl.Window)
	if err != nil {
		return nil, nil, fmt.Errorf("rate limiter: %w", err)
	}
	if rl.Backend != config.LimiterRedis {
		log.Info("rate limiter ready", "backend", config.LimiterMemory, "requests", rl.Requests, "window", rl.Window)
		return local, local, nil
	}

	client := ratelimit.NewRedisClient(ratelimit.RedisOptions{
		Addr:     rl.Redis.Addr,
		Password: rl.Redis.Password,
		DB:       rl.Redis.DB,
	})
	shared := ratelimit.NewRedisWindow(client, local, rl.Redis.KeyPrefix, log.Slog())

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := shared.Ping(pingCtx); err != nil {
		// Checks fall back to the local window until Redis answers.
		log.Warn("redis unreachable at startup", "addr", rl.Redis.Addr, "error", err)
	}
	log.Info("rate limiter ready", "backend", config.LimiterRedis, "addr", rl.Redis.Addr,
		"requests", rl.Requests, "window", rl.Window)
	return local, shared, nil
}

func collectorSources(store *storage.Handle, local *ratelimit.SlidingWindow, limiter ratelimit.Limiter) metric.Sources {
	src := metric.Sources{
		TrackedKeys: local.Len,
		Credentials: func() (int, int) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			users, tokens, err := store.Count(ctx)
			if err != nil {
				logger.Warn("credential count failed", "error", err)
			}
			return users, tokens
		},
	}
	if rw, ok := limiter.(*ratelimit.RedisWindow); ok {
		src.RateLimitFallbacks = rw.Fallbacks
	}
	return src
}

func startMetrics(g *errgroup.Group, cfg config.MetricsConfig, reg *metric.Registry, log logger.Logger) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, reg.Handler())

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", cfg.Addr, err)
	}
	ms := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		log.Info("metrics listening", "addr", ln.Addr().String(), "path", cfg.Path)
		if err := ms.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	return ms, nil
}

func watchConfig(path string, cfg *config.ServerConfig, local *ratelimit.SlidingWindow, log logger.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	r := &reloader{current: cfg, limiter: local, log: log}
	w.OnChange(func(string) {
		next, err := config.Load(path)
		if err != nil {
			log.Warn("configuration reload rejected", "error", err)
			return
		}
		r.apply(next)
	})
	w.StartAsync()
	return w, nil
}
