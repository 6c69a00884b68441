package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/janitarr/janitarr/internal/telemetry"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const (
	maxRetries    = 2
	cacheUserKey  = "admin_user_id"
	cacheLifetime = 10 * time.Minute
)

// Client handles communication with the Jellyfin API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *cache.Cache // resolved user id and other slow-changing lookups
	logger     *logrus.Logger
}

// NewClient creates a new Jellyfin API client
func NewClient(cfg models.ServiceConfig, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("jellyfin URL and API key are required")
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(cacheLifetime, 2*cacheLifetime),
		logger:     logger,
	}, nil
}

// doRequest performs an authenticated GET against the Jellyfin API and
// decodes the JSON response into result. Transient failures are retried
// with exponential backoff.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	fullURL := c.baseURL + path
	if params != nil {
		fullURL += "?" + params.Encode()
	}

	c.logger.WithField("url", fullURL).Debug("Making Jellyfin API request")

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", fmt.Sprintf(`MediaBrowser Token="%s"`, c.apiKey))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return backoff.Permanent(fmt.Errorf("jellyfin rejected API key (status %d)", resp.StatusCode))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("jellyfin returned status %d: %s", resp.StatusCode, string(bodyBytes))
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}

		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
	telemetry.RecordUpstreamRequest("jellyfin", err)
	return err
}

// resolveUserID returns the id of the first administrator account, which is
// the account whose watch state the sync reads. The lookup is cached.
func (c *Client) resolveUserID(ctx context.Context) (string, error) {
	if cached, found := c.cache.Get(cacheUserKey); found {
		return cached.(string), nil
	}

	var users []User
	if err := c.doRequest(ctx, "/Users", nil, &users); err != nil {
		return "", fmt.Errorf("failed to list users: %w", err)
	}

	for _, user := range users {
		if user.Policy.IsAdministrator {
			c.cache.Set(cacheUserKey, user.ID, cache.DefaultExpiration)
			return user.ID, nil
		}
	}

	if len(users) > 0 {
		c.cache.Set(cacheUserKey, users[0].ID, cache.DefaultExpiration)
		return users[0].ID, nil
	}

	return "", fmt.Errorf("jellyfin has no users")
}
