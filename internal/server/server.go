// Package server sets up the HTTP server, router, and route table.
//
// This is the composition root: New opens the store and builds
// sqlstore.DB -> service.RecordService -> handler.RecordHandler, then wires
// the handlers to routes. Nothing else in the repo constructs these.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/recordkeeper/internal/config"
	"github.com/sakif/recordkeeper/internal/handler"
	"github.com/sakif/recordkeeper/internal/metrics"
	"github.com/sakif/recordkeeper/internal/middleware"
	"github.com/sakif/recordkeeper/internal/repository/sqlstore"
	"github.com/sakif/recordkeeper/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and the database connection. The connection is
// closed when Start returns.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqlstore.DB
	metrics *metrics.Metrics
}

// New opens the store named by cfg and builds the router.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.DB.Driver == sqlstore.DriverSQLite && cfg.DB.DSN != ":memory:" {
		// Make sure the directory for the database file exists (like mkdir -p).
		dir := filepath.Dir(cfg.DB.DSN)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqlstore.Open(cfg.DB.Driver, cfg.DB.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}
	s.setupRoutes()
	return s, nil
}

// setupRoutes configures middleware and routes.
//
//	POST|GET|PUT|DELETE /api/containers
//	POST|GET|PUT|DELETE /api/subcontainers
//	POST|GET|PUT|DELETE /api/leaves
//	GET                 /healthz
//	GET                 /metrics
//
// Middleware runs in the order added: request id, real ip, metrics, logging,
// then panic recovery. Recoverer sits innermost so the 500 it writes is
// counted and logged like any other response.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	svc := service.NewRecordService(s.db, s.logger)
	records := handler.NewRecordHandler(svc, s.config.Classifier(), s.metrics, s.logger)

	s.router.Get("/healthz", records.Health)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/containers", records.CreateContainers)
		r.Get("/containers", records.ReadContainers)
		r.Put("/containers", records.UpdateContainers)
		r.Delete("/containers", records.DeleteContainers)

		r.Post("/subcontainers", records.CreateSubContainers)
		r.Get("/subcontainers", records.ReadSubContainers)
		r.Put("/subcontainers", records.UpdateSubContainers)
		r.Delete("/subcontainers", records.DeleteSubContainers)

		r.Post("/leaves", records.CreateLeaves)
		r.Get("/leaves", records.ReadLeaves)
		r.Put("/leaves", records.UpdateLeaves)
		r.Delete("/leaves", records.DeleteLeaves)
	})
}

// Router exposes the configured handler, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully: stop
// accepting connections, give in-flight requests up to 30 seconds, close the
// database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DB.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
