package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Default user seeded into the settings store at startup
	DefaultUser string

	// Jellyfin (media server, mandatory for syncing)
	JellyfinURL    string
	JellyfinAPIKey string

	// Jellyseerr (request manager, optional)
	JellyseerrURL    string
	JellyseerrAPIKey string

	// Radarr / Sonarr (acquisition managers, optional)
	RadarrURL    string
	RadarrAPIKey string
	SonarrURL    string
	SonarrAPIKey string

	// Sync
	SyncCooldown    time.Duration // Minimum interval between syncs per user
	UpstreamTimeout time.Duration // Per-request timeout on upstream calls

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/janitarr.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file.
// Upstream credentials are intentionally not required here: a sync for a
// user without media-server credentials fails with a configuration error
// at sync time instead of preventing startup.
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("DEFAULT_USER", "default")
	viper.SetDefault("SYNC_COOLDOWN_MINUTES", 5)
	viper.SetDefault("UPSTREAM_TIMEOUT_SECONDS", 30)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "janitarr")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		DefaultUser: viper.GetString("DEFAULT_USER"),

		// Jellyfin
		JellyfinURL:    viper.GetString("JELLYFIN_URL"),
		JellyfinAPIKey: viper.GetString("JELLYFIN_API_KEY"),

		// Jellyseerr
		JellyseerrURL:    viper.GetString("JELLYSEERR_URL"),
		JellyseerrAPIKey: viper.GetString("JELLYSEERR_API_KEY"),

		// Radarr / Sonarr
		RadarrURL:    viper.GetString("RADARR_URL"),
		RadarrAPIKey: viper.GetString("RADARR_API_KEY"),
		SonarrURL:    viper.GetString("SONARR_URL"),
		SonarrAPIKey: viper.GetString("SONARR_API_KEY"),

		// Sync
		SyncCooldown:    time.Duration(viper.GetInt("SYNC_COOLDOWN_MINUTES")) * time.Minute,
		UpstreamTimeout: time.Duration(viper.GetInt("UPSTREAM_TIMEOUT_SECONDS")) * time.Second,

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		DatabaseFile: filepath.Join(configDir, "janitarr.db"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if config.SyncCooldown <= 0 {
		return nil, fmt.Errorf("SYNC_COOLDOWN_MINUTES must be positive")
	}
	if config.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT_SECONDS must be positive")
	}

	return config, nil
}
