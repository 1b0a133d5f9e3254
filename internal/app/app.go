// Package app provides the application lifecycle: dependency wiring, startup
// probes, the HTTP server, and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clipscout/clipscout/internal/api"
	"github.com/clipscout/clipscout/internal/apiclient"
	"github.com/clipscout/clipscout/internal/collector"
	"github.com/clipscout/clipscout/internal/config"
	"github.com/clipscout/clipscout/internal/dedup"
	"github.com/clipscout/clipscout/internal/invidious"
	"github.com/clipscout/clipscout/internal/logger"
	"github.com/clipscout/clipscout/internal/metrics"
	"github.com/clipscout/clipscout/internal/pipeline"
	"github.com/clipscout/clipscout/internal/queue"
	"github.com/clipscout/clipscout/internal/rater"
	"github.com/clipscout/clipscout/internal/ratelimit"
	"github.com/clipscout/clipscout/internal/registry"
	"github.com/clipscout/clipscout/internal/youtube"
)

const (
	// DefaultShutdownTimeout is the timeout for graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second
	// SeenTTL bounds how long the dedup tracker remembers queued videos.
	SeenTTL = 30 * 24 * time.Hour
	// startupProbeTimeout bounds the initial mirror-pool health sweep.
	startupProbeTimeout = 30 * time.Second
)

// App holds the wired service.
type App struct {
	config      *config.Config
	logger      logger.Logger
	redisClient *redis.Client
	store       queue.Store
	tracker     *dedup.Tracker
	registry    *registry.Registry
	run         *pipeline.Context
	httpServer  *http.Server
	version     string
}

// Options configures App construction.
type Options struct {
	ConfigPath string
	Version    string
}

// New loads configuration and wires every dependency. The mirror pool is
// probed once before the server starts so the first request does not pay for
// discovery.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "clipscout"),
		logger.String("version", opts.Version),
	)

	a := &App{
		config:  cfg,
		logger:  appLogger,
		run:     pipeline.NewContext(0),
		version: opts.Version,
	}

	if err := a.wire(); err != nil {
		_ = appLogger.Sync()
		return nil, err
	}
	return a, nil
}

func (a *App) wire() error {
	cfg := a.config

	if err := a.wireStore(); err != nil {
		return err
	}

	m := metrics.NewDefault()

	reg, err := registry.New(cfg.Primary.Instances, registry.Config{
		FailureThreshold: cfg.Primary.FailureThreshold,
		ProbeTimeout:     cfg.Primary.ProbeTimeout,
		OnStateChange:    m.SetInstanceUp,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("create instance registry: %w", err)
	}
	a.registry = reg

	probeCtx, cancel := context.WithTimeout(context.Background(), startupProbeTimeout)
	defer cancel()
	healthy := reg.ProbeAll(probeCtx)
	a.logger.Info("mirror pool probed",
		logger.Int("instances", reg.Len()),
		logger.Int("healthy", healthy),
	)

	// Failures below the circuit threshold fire no callback; seed the gauges
	// with the probed state so every instance reports from the start.
	for _, snapshot := range reg.Snapshot() {
		m.SetInstanceUp(snapshot.URL, !snapshot.CircuitOpen)
	}

	limitCfg := ratelimit.Config{
		MinInterval:       cfg.RateLimit.MinInterval,
		RequestsPerWindow: cfg.RateLimit.RequestsPerMinute,
		Window:            cfg.RateLimit.QuotaWindow,
	}

	primaryAPI := apiclient.New(reg, ratelimit.New("mirror_pool", limitCfg, a.logger), apiclient.Config{
		MaxRetries:     cfg.Primary.MaxRetries,
		RequestTimeout: cfg.Primary.RequestTimeout,
		BackoffBase:    cfg.Primary.BackoffBase,
	}, a.logger, m)
	primary := invidious.New(primaryAPI, a.logger)

	var fallbackSource collector.VideoSource
	var fallbackComments rater.CommentSource
	if cfg.Fallback.APIKey != "" {
		fallback := youtube.New(youtube.Config{
			APIKey:   cfg.Fallback.APIKey,
			BaseURL:  cfg.Fallback.BaseURL,
			Timeout:  cfg.Fallback.RequestTimeout,
			PageSize: cfg.Rater.CommentPageSize,
		}, ratelimit.New("official_api", limitCfg, a.logger), a.logger)
		fallbackSource = fallback
		fallbackComments = fallback
		a.logger.Info("official API fallback enabled")
	} else {
		a.logger.Info("official API fallback disabled, no key configured")
	}

	var seenTracker collector.SeenTracker
	var discardTracker rater.DiscardTracker
	if a.tracker != nil {
		seenTracker = a.tracker
		discardTracker = a.tracker
	}

	col := collector.New(primary, fallbackSource, a.store, seenTracker, a.run, m, cfg.Collector, a.logger)
	rat := rater.New(a.store, primary, fallbackComments, discardTracker, a.run, m, cfg.Rater, a.logger)

	router := api.NewRouter(col, rat, reg, a.store, a.run, m, cfg, a.logger)
	a.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return nil
}

// wireStore builds the queue store and, when redis is reachable, the dedup
// tracker.
func (a *App) wireStore() error {
	cfg := a.config

	switch cfg.Queue.Backend {
	case "redis":
		client, err := queue.NewRedisClient(cfg.Queue.Redis.Addr, cfg.Queue.Redis.Password, cfg.Queue.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect queue redis: %w", err)
		}
		a.redisClient = client
		a.store = queue.NewRedisStore(client, "", a.logger)
		a.tracker = dedup.NewTracker(client, SeenTTL, a.logger)

	case "postgres":
		db, err := queue.NewPostgresConnection(cfg.Queue.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("connect queue postgres: %w", err)
		}
		store, err := queue.NewPostgresStore(db, a.logger)
		if err != nil {
			return fmt.Errorf("create postgres store: %w", err)
		}
		a.store = store

		// Dedup still wants redis even with a postgres queue.
		if cfg.Queue.Redis.Addr != "" {
			client, redisErr := queue.NewRedisClient(cfg.Queue.Redis.Addr, cfg.Queue.Redis.Password, cfg.Queue.Redis.DB)
			if redisErr != nil {
				return fmt.Errorf("connect dedup redis: %w", redisErr)
			}
			a.redisClient = client
			a.tracker = dedup.NewTracker(client, SeenTTL, a.logger)
		}

	case "memory":
		a.store = queue.NewMemoryStore()
		a.logger.Warn("using in-memory queue store, records do not survive restarts")

	default:
		return fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}

	return nil
}

// Run starts the HTTP server and blocks until a shutdown signal or a server
// error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting",
			logger.String("address", a.config.Server.Address),
			logger.Bool("debug", a.config.Debug),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutting down gracefully", logger.String("signal", sig.String()))
	case <-ctx.Done():
		a.logger.Info("shutting down, context cancelled")
	case err := <-serverErr:
		a.logger.Error("http server error", logger.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", logger.Error(err))
		return err
	}

	a.logger.Info("service stopped")
	return nil
}

// FlushSeen clears the seen-video marks so the next collection run starts
// fresh.
func (a *App) FlushSeen(ctx context.Context) error {
	if a.tracker == nil {
		return errors.New("dedup tracker is not configured")
	}
	return a.tracker.FlushSeen(ctx)
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Close releases resources.
func (a *App) Close() error {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close queue store", logger.Error(err))
		}
	}
	// With the redis queue backend the store owns the client; only close it
	// here when it serves the dedup tracker alone.
	if a.redisClient != nil && a.config.Queue.Backend != "redis" {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis client", logger.Error(err))
		}
	}
	return a.logger.Sync()
}
