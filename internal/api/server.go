package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/gst-reconcile/internal/api/handlers"
	"github.com/eshaffer321/gst-reconcile/internal/api/middleware"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/config"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
)

const tracerName = "github.com/eshaffer321/gst-reconcile/internal/api"

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

// ConfigFrom builds the server config from application config.
func ConfigFrom(cfg config.APIConfig) Config {
	c := DefaultConfig()
	if cfg.Port > 0 {
		c.Port = cfg.Port
	}
	if len(cfg.AllowedOrigins) > 0 {
		c.AllowedOrigins = cfg.AllowedOrigins
	}
	return c
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	jobs       handlers.JobService
}

// NewServer creates a new API server. If jobs is nil the reconcile job
// endpoints are not mounted.
func NewServer(cfg Config, repo storage.Repository, jobs handlers.JobService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		repo:   repo,
		jobs:   jobs,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))
	s.router.Use(middleware.Tracing(tracerName))
	s.router.Use(middleware.Logging(s.logger))
}

func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	var schema handlers.SchemaChecker
	if checker, ok := s.repo.(handlers.SchemaChecker); ok {
		schema = checker
	}
	s.router.Get("/health", handlers.NewHealthHandler(schema).ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		results := handlers.NewResultsHandler(s.repo)
		r.Get("/results", results.List)
		r.Get("/results/{documentID}", results.GetByDocument)
		r.Get("/results/{documentID}/{mode}", results.Get)

		runs := handlers.NewRunsHandler(s.repo)
		r.Get("/runs", runs.List)
		r.Get("/runs/{id}", runs.Get)

		stats := handlers.NewStatsHandler(s.repo)
		r.Get("/stats", stats.Get)

		if s.jobs != nil {
			jobs := handlers.NewJobsHandler(s.jobs)
			r.Post("/reconcile", jobs.Start)
			r.Get("/reconcile", jobs.List)
			r.Get("/reconcile/{jobID}", jobs.Get)
			r.Delete("/reconcile/{jobID}", jobs.Cancel)
		}
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
