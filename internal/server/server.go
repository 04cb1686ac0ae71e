package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kollabhq/kollab/internal/authz"
	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/config"
	"github.com/kollabhq/kollab/internal/instrumentation"
	"github.com/kollabhq/kollab/internal/ratelimit"
	"github.com/kollabhq/kollab/internal/session"
)

// HTTP server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server is the HTTP API server.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	repo     Repository
	sessions *session.Manager
	resolver *authz.Resolver
	cache    *cache.Client
	limiter  *ratelimit.Limiter
	admins   authz.AdminSet

	metrics        *instrumentation.Metrics
	metricsHandler http.Handler
	dbPing         Pinger
	cachePing      Pinger
	version        string

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. The recorder is nil-safe, so the
// option may be omitted entirely.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMetricsHandler mounts a Prometheus scrape handler at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// WithPingers sets the readiness dependencies.
func WithPingers(db, cache Pinger) Option {
	return func(s *Server) {
		s.dbPing = db
		s.cachePing = cache
	}
}

// WithVersion sets the version reported by the health endpoints.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New assembles the server from its collaborators. The system-admin override
// set is built from the configuration.
func New(
	cfg *config.Config,
	repo Repository,
	sessions *session.Manager,
	resolver *authz.Resolver,
	cacheClient *cache.Client,
	limiter *ratelimit.Limiter,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   slog.Default(),
		repo:     repo,
		sessions: sessions,
		resolver: resolver,
		cache:    cacheClient,
		limiter:  limiter,
		admins:   authz.NewAdminSet(cfg.SystemAdminIDs, cfg.SystemAdminEmails),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// limit returns the rate-limit middleware for a bucket, keyed by principal.
func (s *Server) limit(bucket ratelimit.Bucket) func(http.Handler) http.Handler {
	return s.limiter.Middleware(bucket, principalKey, s.cfg.Production())
}

// Router builds the full route tree. Middleware order within a group is the
// documented pipeline order.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if s.cfg.MaxUploadSizeBytes > 0 {
		r.Use(chimiddleware.RequestSize(s.cfg.MaxUploadSizeBytes))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", csrfHeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.csrfMiddleware)

	r.Get("/health/live", s.handleLive)
	r.Get("/health/ready", s.handleReady)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		// Login and register cannot require a session; they are limited by
		// client address through the auth bucket.
		api.Group(func(public chi.Router) {
			public.Use(s.tracing)
			public.Use(s.performanceLogger)
			public.Use(s.httpMetrics)
			public.With(s.limit(ratelimit.Auth)).Post("/auth/register", s.handleRegister)
			public.With(s.limit(ratelimit.Auth)).Post("/auth/login", s.handleLogin)
		})

		api.Group(func(private chi.Router) {
			private.Use(s.tracing)
			private.Use(s.requireAuth)
			private.Use(s.performanceLogger)
			private.Use(s.httpMetrics)
			private.Use(s.limit(ratelimit.API))

			private.Post("/auth/logout", s.handleLogout)
			private.Get("/auth/me", s.handleMe)
			private.With(s.limit(ratelimit.Update)).Put("/auth/password", s.handleChangePassword)

			private.Route("/admin", func(admin chi.Router) {
				admin.Use(s.requireSystemAdmin)
				admin.Get("/cache", s.handleCacheStats)
			})

			private.Route("/workspaces", func(ws chi.Router) {
				ws.Get("/", s.handleListWorkspaces)
				ws.With(s.limit(ratelimit.CreateWorkspace)).Post("/", s.handleCreateWorkspace)

				ws.Route("/{workspaceID}", func(one chi.Router) {
					one.Get("/", s.handleGetWorkspace)
					one.With(s.limit(ratelimit.Update)).Put("/", s.handleUpdateWorkspace)
					one.With(s.limit(ratelimit.Delete)).Delete("/", s.handleDeleteWorkspace)

					one.Get("/members", s.handleListMembers)
					one.With(s.limit(ratelimit.Update)).Post("/members", s.handleAddMember)
					one.With(s.limit(ratelimit.Update)).Put("/members/{principalID}", s.handleUpdateMemberRole)
					one.With(s.limit(ratelimit.Delete)).Delete("/members/{principalID}", s.handleRemoveMember)

					one.Get("/documents", s.handleListDocuments)
					one.With(s.limit(ratelimit.CreateDocument)).Post("/documents", s.handleCreateDocument)
					one.Get("/documents/{documentID}", s.handleGetDocument)
					one.With(s.limit(ratelimit.Update)).Put("/documents/{documentID}", s.handleUpdateDocument)
					one.With(s.limit(ratelimit.Delete)).Delete("/documents/{documentID}", s.handleArchiveDocument)

					one.Get("/tasks", s.handleListTasks)
					one.With(s.limit(ratelimit.CreateTask)).Post("/tasks", s.handleCreateTask)
					one.Get("/tasks/{taskID}", s.handleGetTask)
					one.With(s.limit(ratelimit.Update)).Put("/tasks/{taskID}", s.handleUpdateTask)
					one.With(s.limit(ratelimit.Delete)).Delete("/tasks/{taskID}", s.handleDeleteTask)

					one.Get("/projects", s.handleListProjects)
					one.With(s.limit(ratelimit.CreateProject)).Post("/projects", s.handleCreateProject)
					one.Get("/projects/{projectID}", s.handleGetProject)

					one.Get("/teams", s.handleListTeams)
					one.With(s.limit(ratelimit.CreateTeam)).Post("/teams", s.handleCreateTeam)
					one.Get("/teams/{teamID}/members", s.handleListTeamMembers)

					one.With(s.limit(ratelimit.Search)).Get("/search", s.handleSearch)
				})
			})
		})
	})

	return r
}

// Run serves HTTP until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
