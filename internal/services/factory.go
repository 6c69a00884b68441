package services

import (
	"time"

	"github.com/janitarr/janitarr/internal/controllers"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/janitarr/janitarr/internal/services/jellyfin"
	"github.com/janitarr/janitarr/internal/services/jellyseerr"
	"github.com/janitarr/janitarr/internal/services/radarr"
	"github.com/janitarr/janitarr/internal/services/sonarr"
	"github.com/sirupsen/logrus"
)

// Factory builds concrete upstream clients from stored per-user
// credentials. Clients are constructed per sync so credential changes are
// picked up without a restart.
type Factory struct {
	Timeout time.Duration
	Logger  *logrus.Logger
}

// NewFactory creates a client factory with a shared request timeout
func NewFactory(timeout time.Duration, logger *logrus.Logger) *Factory {
	return &Factory{Timeout: timeout, Logger: logger}
}

// MediaServer returns a Jellyfin client
func (f *Factory) MediaServer(cfg models.ServiceConfig) (controllers.MediaServerClient, error) {
	return jellyfin.NewClient(cfg, f.Timeout, f.Logger)
}

// RequestManager returns a Jellyseerr client
func (f *Factory) RequestManager(cfg models.ServiceConfig) (controllers.RequestManagerClient, error) {
	return jellyseerr.NewClient(cfg, f.Timeout, f.Logger)
}

// MovieManager returns a Radarr client
func (f *Factory) MovieManager(cfg models.ServiceConfig) (controllers.MovieManagerClient, error) {
	return radarr.NewClient(cfg, f.Timeout, f.Logger)
}

// SeriesManager returns a Sonarr client
func (f *Factory) SeriesManager(cfg models.ServiceConfig) (controllers.SeriesManagerClient, error) {
	return sonarr.NewClient(cfg, f.Timeout, f.Logger)
}
