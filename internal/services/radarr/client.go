package radarr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/janitarr/janitarr/internal/telemetry"
	"github.com/sirupsen/logrus"
)

const maxRetries = 2

// Movie represents a Radarr movie record
type Movie struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	TMDBId     int    `json:"tmdbId"`
	IMDBId     string `json:"imdbId"`
	SizeOnDisk int64  `json:"sizeOnDisk"`
	HasFile    bool   `json:"hasFile"`
}

// Client handles communication with the Radarr API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new Radarr API client
func NewClient(cfg models.ServiceConfig, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("radarr URL and API key are required")
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// doRequest performs an authenticated GET against the Radarr API
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	fullURL := c.baseURL + path

	c.logger.WithField("url", fullURL).Debug("Making Radarr API request")

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			return backoff.Permanent(fmt.Errorf("radarr rejected API key"))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("radarr returned status %d: %s", resp.StatusCode, string(bodyBytes))
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}

		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
	telemetry.RecordUpstreamRequest("radarr", err)
	return err
}

// FetchMovieSizes returns the on-disk size of every movie Radarr manages,
// keyed by tmdb id. Used to enrich media items whose file size the media
// server did not report.
func (c *Client) FetchMovieSizes(ctx context.Context) (map[string]int64, error) {
	var movies []Movie
	if err := c.doRequest(ctx, "/api/v3/movie", &movies); err != nil {
		return nil, fmt.Errorf("failed to fetch movies: %w", err)
	}

	sizes := make(map[string]int64, len(movies))
	for _, movie := range movies {
		if !movie.HasFile || movie.TMDBId == 0 {
			continue
		}
		sizes[strconv.Itoa(movie.TMDBId)] = movie.SizeOnDisk
	}

	c.logger.WithField("count", len(sizes)).Debug("Radarr movie sizes fetched")
	return sizes, nil
}
