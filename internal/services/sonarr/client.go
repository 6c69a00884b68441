package sonarr

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

// Series represents a Sonarr series record with per-season statistics
type Series struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	TVDBId  int    `json:"tvdbId"`
	IMDBId  string `json:"imdbId"`
	Seasons []struct {
		SeasonNumber int `json:"seasonNumber"`
		Statistics   struct {
			SizeOnDisk        int64 `json:"sizeOnDisk"`
			EpisodeFileCount  int   `json:"episodeFileCount"`
			TotalEpisodeCount int   `json:"totalEpisodeCount"`
		} `json:"statistics"`
	} `json:"seasons"`
	Statistics struct {
		SizeOnDisk int64 `json:"sizeOnDisk"`
	} `json:"statistics"`
}

// Client handles communication with the Sonarr API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new Sonarr API client
func NewClient(cfg models.ServiceConfig, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("sonarr URL and API key are required")
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// doRequest performs an authenticated GET against the Sonarr API
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	fullURL := c.baseURL + path

	c.logger.WithField("url", fullURL).Debug("Making Sonarr API request")

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
			return backoff.Permanent(fmt.Errorf("sonarr rejected API key"))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("sonarr returned status %d: %s", resp.StatusCode, string(bodyBytes))
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}

		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
	telemetry.RecordUpstreamRequest("sonarr", err)
	return err
}

// FetchSeasonSizes returns per-season on-disk sizes for every series Sonarr
// manages, keyed by tvdb id then season number. Used to enrich season size
// roll-ups when episode file sizes are missing from the media server.
func (c *Client) FetchSeasonSizes(ctx context.Context) (map[string]map[int]int64, error) {
	var series []Series
	if err := c.doRequest(ctx, "/api/v3/series", &series); err != nil {
		return nil, fmt.Errorf("failed to fetch series: %w", err)
	}

	sizes := make(map[string]map[int]int64, len(series))
	for _, show := range series {
		if show.TVDBId == 0 {
			continue
		}
		bySeason := make(map[int]int64, len(show.Seasons))
		for _, season := range show.Seasons {
			if season.Statistics.SizeOnDisk > 0 {
				bySeason[season.SeasonNumber] = season.Statistics.SizeOnDisk
			}
		}
		sizes[strconv.Itoa(show.TVDBId)] = bySeason
	}

	c.logger.WithField("count", len(sizes)).Debug("Sonarr season sizes fetched")
	return sizes, nil
}
