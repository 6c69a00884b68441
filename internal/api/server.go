package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/janitarr/janitarr/internal/api/handlers"
	"github.com/janitarr/janitarr/internal/api/middleware"
	"github.com/janitarr/janitarr/internal/config"
	"github.com/janitarr/janitarr/internal/controllers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Controllers bundles the controllers the HTTP surface exposes
type Controllers struct {
	Sync      *controllers.SyncController
	Issues    *controllers.IssuesController
	Summary   *controllers.SummaryController
	Whitelist *controllers.WhitelistController
	Settings  *controllers.SettingsController
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, ctrls Controllers, logger *logrus.Logger) *Server {
	s := &Server{logger: logger}

	router := chi.NewRouter()
	router.Use(middleware.Logging(logger))
	s.setupRoutes(router, cfg, ctrls)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(router chi.Router, cfg *config.Config, ctrls Controllers) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	router.Get("/health", healthHandler.ServeHTTP)
	router.Handle("/metrics", promhttp.Handler())

	syncHandler := handlers.NewSyncHandler(ctrls.Sync, cfg.DefaultUser, s.logger)
	issuesHandler := handlers.NewIssuesHandler(ctrls.Issues, cfg.DefaultUser, s.logger)
	summaryHandler := handlers.NewSummaryHandler(ctrls.Summary, cfg.DefaultUser, s.logger)
	whitelistHandler := handlers.NewWhitelistHandler(ctrls.Whitelist, cfg.DefaultUser, s.logger)
	settingsHandler := handlers.NewSettingsHandler(ctrls.Settings, cfg.DefaultUser, s.logger)

	router.Route("/api", func(r chi.Router) {
		r.Post("/sync", syncHandler.Trigger)
		r.Get("/sync/status", syncHandler.Status)

		r.Get("/issues", issuesHandler.List)
		r.Get("/content/summary", summaryHandler.Get)

		r.Route("/whitelist", func(r chi.Router) {
			r.Get("/content", whitelistHandler.ListContent)
			r.Post("/content", whitelistHandler.AddContent)
			r.Delete("/content/{id}", whitelistHandler.RemoveContent)

			r.Get("/episode-exempt", whitelistHandler.ListExemptions)
			r.Post("/episode-exempt", whitelistHandler.AddExemption)
			r.Delete("/episode-exempt/{id}", whitelistHandler.RemoveExemption)
		})

		r.Get("/settings/thresholds", settingsHandler.GetThresholds)
		r.Put("/settings/thresholds", settingsHandler.UpdateThresholds)
	})
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("addr", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
