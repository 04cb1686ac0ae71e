package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kollabhq/kollab/internal/authz"
	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/config"
	"github.com/kollabhq/kollab/internal/instrumentation"
	"github.com/kollabhq/kollab/internal/logging"
	"github.com/kollabhq/kollab/internal/ratelimit"
	"github.com/kollabhq/kollab/internal/server"
	"github.com/kollabhq/kollab/internal/session"
	"github.com/kollabhq/kollab/internal/store"
)

// newServeCmd creates the command that runs the HTTP API server.
func newServeCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Kollab API server",
		Long: `Start the HTTP API server.

Required environment variables:
  DATABASE_URL   source-of-truth DSN (postgres://...)
  CACHE_URL      cache datastore DSN (redis://...)
  AUTH_SECRET    HMAC material for session cookies
  FRONTEND_URL   origin allowed by CORS

Optional:
  LISTEN_ADDR, KOLLAB_ENV, LOG_FORMAT, SESSION_EXPIRY_DAYS,
  SYSTEM_ADMIN_IDS, SYSTEM_ADMIN_EMAILS, MAX_UPLOAD_SIZE_BYTES,
  ENABLE_DEMO_MODE, INSTRUMENTATION_ENABLED and the OTEL_* exporter
  settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, debug)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func runServe(cmd *cobra.Command, debug bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := logging.NewLogger(cfg.LogFormat, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
	if err != nil {
		return fmt.Errorf("initializing instrumentation: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	db, err := store.Open(ctx, cfg.DatabaseURL, store.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("database close failed", logging.Err(err))
		}
	}()

	cacheClient, err := cache.New(cfg.CacheURL,
		cache.WithLogger(logger),
		cache.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("connecting to cache: %w", err)
	}
	defer func() {
		if err := cacheClient.Close(); err != nil {
			logger.Warn("cache close failed", logging.Err(err))
		}
	}()

	sessions := session.NewManager(session.StoreAdapter{S: db}, cfg.AuthSecret, cfg.SessionExpiry,
		session.WithManagerLogger(logger),
		session.WithCache(cacheClient))
	resolver := authz.NewResolver(authz.StoreAdapter{S: db}, cacheClient,
		authz.WithResolverLogger(logger),
		authz.WithWarmUp())
	limiter := ratelimit.New(cacheClient,
		ratelimit.WithLogger(logger),
		ratelimit.WithBlockRecorder(metrics))

	repo := server.NewRepository(db)
	if cfg.EnableDemoMode {
		if err := server.SeedDemo(ctx, repo, logger); err != nil {
			return fmt.Errorf("seeding demo principal: %w", err)
		}
	}

	srv := server.New(cfg, repo, sessions, resolver, cacheClient, limiter,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithMetricsHandler(provider.Handler()),
		server.WithPingers(db, cacheClient),
		server.WithVersion(rootCmd.Version))

	logger.Info("starting kollab",
		"version", rootCmd.Version,
		"environment", cfg.Environment,
		"addr", cfg.ListenAddr)

	return srv.Run(ctx)
}
