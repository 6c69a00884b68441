package jellyseerr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/janitarr/janitarr/internal/telemetry"
	"github.com/sirupsen/logrus"
)

const (
	maxRetries = 2
	pageSize   = 50
)

// Jellyseerr media status codes
const (
	mediaStatusPartiallyAvailable = 4
	mediaStatusAvailable          = 5
)

// Jellyseerr request status codes
const requestStatusDeclined = 3

// RequestsResponse represents one page of the request list
type RequestsResponse struct {
	PageInfo struct {
		Pages   int `json:"pages"`
		Results int `json:"results"`
	} `json:"pageInfo"`
	Results []RequestItem `json:"results"`
}

// RequestItem represents a single request
type RequestItem struct {
	ID        int    `json:"id"`
	Status    int    `json:"status"`
	CreatedAt string `json:"createdAt"`
	Media     struct {
		MediaType   string `json:"mediaType"` // "movie" or "tv"
		TMDBId      int    `json:"tmdbId"`
		Status      int    `json:"status"`
		Title       string `json:"title,omitempty"`
		ReleaseDate string `json:"releaseDate,omitempty"`
	} `json:"media"`
	RequestedBy struct {
		DisplayName string `json:"displayName"`
	} `json:"requestedBy"`
	Seasons []struct {
		SeasonNumber int `json:"seasonNumber"`
		Status       int `json:"status"`
	} `json:"seasons"`
}

// Client handles communication with the Jellyseerr API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new Jellyseerr API client
func NewClient(cfg models.ServiceConfig, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("jellyseerr URL and API key are required")
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// doRequest performs an authenticated GET against the Jellyseerr API
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	fullURL := c.baseURL + path
	if params != nil {
		fullURL += "?" + params.Encode()
	}

	c.logger.WithField("url", fullURL).Debug("Making Jellyseerr API request")

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

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return backoff.Permanent(fmt.Errorf("jellyseerr rejected API key (status %d)", resp.StatusCode))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("jellyseerr returned status %d: %s", resp.StatusCode, string(bodyBytes))
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}

		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
	telemetry.RecordUpstreamRequest("jellyseerr", err)
	return err
}

// FetchRequests pages through all requests and converts them to the
// snapshot model
func (c *Client) FetchRequests(ctx context.Context) ([]models.Request, error) {
	var requests []models.Request

	for skip := 0; ; skip += pageSize {
		params := url.Values{}
		params.Set("take", strconv.Itoa(pageSize))
		params.Set("skip", strconv.Itoa(skip))
		params.Set("filter", "all")

		var page RequestsResponse
		if err := c.doRequest(ctx, "/api/v1/request", params, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch requests: %w", err)
		}

		for _, item := range page.Results {
			requests = append(requests, convertRequest(item))
		}

		if skip+pageSize >= page.PageInfo.Results || len(page.Results) == 0 {
			break
		}
	}

	c.logger.WithField("count", len(requests)).Debug("Jellyseerr requests fetched")
	return requests, nil
}

// convertRequest maps a Jellyseerr request to the snapshot model
func convertRequest(item RequestItem) models.Request {
	request := models.Request{
		ID:          item.ID,
		Title:       item.Media.Title,
		Status:      convertStatus(item),
		RequestedBy: item.RequestedBy.DisplayName,
		TMDBId:      strconv.Itoa(item.Media.TMDBId),
	}

	if request.Title == "" {
		request.Title = fmt.Sprintf("tmdb:%d", item.Media.TMDBId)
	}

	if item.Media.MediaType == "tv" {
		request.MediaType = models.MediaTypeSeries
	} else {
		request.MediaType = models.MediaTypeMovie
	}

	if t, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
		request.RequestDate = t
	}

	if item.Media.ReleaseDate != "" {
		if t, err := time.Parse("2006-01-02", item.Media.ReleaseDate); err == nil {
			request.ReleaseDate = &t
		}
	}

	for _, season := range item.Seasons {
		if season.Status != mediaStatusAvailable {
			request.MissingSeasons = append(request.MissingSeasons, season.SeasonNumber)
		}
	}

	return request
}

// convertStatus derives the request availability from the media status,
// falling back to the request-level status for declined requests
func convertStatus(item RequestItem) models.RequestStatus {
	if item.Status == requestStatusDeclined {
		return models.RequestStatusUnavailable
	}

	switch item.Media.Status {
	case mediaStatusAvailable:
		return models.RequestStatusAvailable
	case mediaStatusPartiallyAvailable:
		return models.RequestStatusPartiallyAvailable
	default:
		return models.RequestStatusPending
	}
}
