// Package api assembles the HTTP surface: routing, middleware ordering and
// the lifecycle of the API and metrics listeners.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/EnvSync-Cloud/envsync-api/pkg/access"
	"github.com/EnvSync-Cloud/envsync-api/pkg/apikeys"
	"github.com/EnvSync-Cloud/envsync-api/pkg/apps"
	"github.com/EnvSync-Cloud/envsync-api/pkg/audit"
	"github.com/EnvSync-Cloud/envsync-api/pkg/auth"
	"github.com/EnvSync-Cloud/envsync-api/pkg/cache"
	"github.com/EnvSync-Cloud/envsync-api/pkg/config"
	"github.com/EnvSync-Cloud/envsync-api/pkg/envs"
	"github.com/EnvSync-Cloud/envsync-api/pkg/envtypes"
	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
	"github.com/EnvSync-Cloud/envsync-api/pkg/onboarding"
	"github.com/EnvSync-Cloud/envsync-api/pkg/orgs"
	"github.com/EnvSync-Cloud/envsync-api/pkg/roles"
	"github.com/EnvSync-Cloud/envsync-api/pkg/settings"
	"github.com/EnvSync-Cloud/envsync-api/pkg/storage"
	"github.com/EnvSync-Cloud/envsync-api/pkg/uploads"
	"github.com/EnvSync-Cloud/envsync-api/pkg/users"
)

// Version is stamped at build time via -ldflags
var Version = "dev"

// Handlers groups every route registrar the server mounts. Wiring them is
// the caller's job; the server only decides where each set lives relative
// to the auth boundary.
type Handlers struct {
	Access     *access.Handlers
	Onboarding *onboarding.Handlers
	Orgs       *orgs.Handlers
	Users      *users.Handlers
	Roles      *roles.Handlers
	Apps       *apps.Handlers
	EnvTypes   *envtypes.Handlers
	Envs       *envs.Handlers
	APIKeys    *apikeys.Handlers
	Settings   *settings.Handlers
	Uploads    *uploads.Handlers
	Audit      *audit.Handlers
}

// Server owns the router and both listeners
type Server struct {
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.Metrics
	router  *mux.Router

	db    *sql.DB
	cache cache.Cache
}

// NewServer builds the router. Everything under /api except the login and
// invite-acceptance endpoints sits behind authentication.
func NewServer(
	cfg *config.Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
	db *sql.DB,
	c cache.Cache,
	authMiddleware *auth.Middleware,
	recorder audit.Recorder,
	handlers Handlers,
) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		router:  mux.NewRouter(),
		db:      db,
		cache:   c,
	}

	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.version).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.requestContext)
	api.Use(s.instrument)

	// Public routes: login initiation and invite acceptance happen before
	// the caller has anything to authenticate with.
	handlers.Access.RegisterRoutes(api)
	handlers.Onboarding.RegisterPublicRoutes(api)

	// CLI command auditing needs the resolved identity, so it sits after
	// authentication.
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware.Handler)
	protected.Use(audit.CLICommandMiddleware(recorder))

	handlers.Orgs.RegisterRoutes(protected)
	handlers.Users.RegisterRoutes(protected)
	handlers.Roles.RegisterRoutes(protected)
	handlers.Apps.RegisterRoutes(protected)
	handlers.EnvTypes.RegisterRoutes(protected)
	handlers.Envs.RegisterRoutes(protected)
	handlers.APIKeys.RegisterRoutes(protected)
	handlers.Settings.RegisterRoutes(protected)
	handlers.Uploads.RegisterRoutes(protected)
	handlers.Audit.RegisterRoutes(protected)
	handlers.Onboarding.RegisterProtectedRoutes(protected)

	return s
}

// Router exposes the configured router, mostly for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start runs the API and metrics listeners until ctx is cancelled, then
// shuts both down within the configured grace period.
func (s *Server) Start(ctx context.Context) error {
	apiServer := &http.Server{
		Addr:         s.cfg.Server.Address(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", s.metrics.Handler())
	metricsServer := &http.Server{
		Addr:    s.cfg.Server.MetricsAddress(),
		Handler: metricsMux,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.logger.WithField("address", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		s.logger.WithField("address", metricsServer.Addr).Info("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down")
		metricsServer.Shutdown(shutdownCtx)
		return apiServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// health reports liveness of the server and its dependencies
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{
		"database": "ok",
		"cache":    "ok",
	}
	status := http.StatusOK

	if err := storage.HealthCheck(ctx, s.db); err != nil {
		components["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			components["cache"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		"components": components,
	})
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": Version})
}
