package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/janitarr/janitarr/internal/api"
	"github.com/janitarr/janitarr/internal/config"
	"github.com/janitarr/janitarr/internal/controllers"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/janitarr/janitarr/internal/scheduler"
	"github.com/janitarr/janitarr/internal/services"
	"github.com/janitarr/janitarr/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Janitarr")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Seed the default user's upstream credentials from the environment
	if err := seedDefaultUser(db, cfg); err != nil {
		return fmt.Errorf("failed to seed default user settings: %w", err)
	}

	// 5. Initialize client factory and controllers
	clients := services.NewFactory(cfg.UpstreamTimeout, logger)
	syncCtrl := controllers.NewSyncController(db, clients, cfg.SyncCooldown, logger)
	issuesCtrl := controllers.NewIssuesController(db, logger)
	summaryCtrl := controllers.NewSummaryController(db, issuesCtrl, logger)
	whitelistCtrl := controllers.NewWhitelistController(db, logger)
	settingsCtrl := controllers.NewSettingsController(db, logger)
	logger.Info("Controllers initialized")

	// 6. Initialize scheduler
	sched := scheduler.NewScheduler(syncCtrl, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 7. Initialize HTTP server
	server := api.NewServer(cfg, api.Controllers{
		Sync:      syncCtrl,
		Issues:    issuesCtrl,
		Summary:   summaryCtrl,
		Whitelist: whitelistCtrl,
		Settings:  settingsCtrl,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 8. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Janitarr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Janitarr stopped")
	return nil
}

// seedDefaultUser stores the environment-provided upstream credentials for
// the default user. Credentials already stored for other users are left
// alone; the default user's are refreshed so env changes win on restart.
func seedDefaultUser(db *models.Database, cfg *config.Config) error {
	if cfg.JellyfinURL == "" {
		return nil
	}

	settings := &models.UserSettings{
		UserID:     cfg.DefaultUser,
		Jellyfin:   models.ServiceConfig{URL: cfg.JellyfinURL, APIKey: cfg.JellyfinAPIKey},
		Jellyseerr: models.ServiceConfig{URL: cfg.JellyseerrURL, APIKey: cfg.JellyseerrAPIKey},
		Radarr:     models.ServiceConfig{URL: cfg.RadarrURL, APIKey: cfg.RadarrAPIKey},
		Sonarr:     models.ServiceConfig{URL: cfg.SonarrURL, APIKey: cfg.SonarrAPIKey},
		UpdatedAt:  time.Now(),
	}

	return db.SaveUserSettings(settings)
}
