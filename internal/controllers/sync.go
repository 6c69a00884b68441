package controllers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/janitarr/janitarr/internal/apperrors"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/janitarr/janitarr/internal/telemetry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const totalSyncSteps = 4

// MediaServerClient pulls the authoritative library tree
type MediaServerClient interface {
	FetchLibrary(ctx context.Context, progress func(done, total int)) ([]models.MediaItem, error)
}

// RequestManagerClient pulls the request list
type RequestManagerClient interface {
	FetchRequests(ctx context.Context) ([]models.Request, error)
}

// MovieManagerClient reports movie sizes keyed by tmdb id
type MovieManagerClient interface {
	FetchMovieSizes(ctx context.Context) (map[string]int64, error)
}

// SeriesManagerClient reports per-season sizes keyed by tvdb id
type SeriesManagerClient interface {
	FetchSeasonSizes(ctx context.Context) (map[string]map[int]int64, error)
}

// ClientFactory builds upstream clients from a user's stored credentials
type ClientFactory interface {
	MediaServer(cfg models.ServiceConfig) (MediaServerClient, error)
	RequestManager(cfg models.ServiceConfig) (RequestManagerClient, error)
	MovieManager(cfg models.ServiceConfig) (MovieManagerClient, error)
	SeriesManager(cfg models.ServiceConfig) (SeriesManagerClient, error)
}

// SyncResult is the outcome reported to the caller of a sync
type SyncResult struct {
	Status           models.SyncStatus `json:"status"`
	MediaItemsSynced int               `json:"media_items_synced"`
	RequestsSynced   int               `json:"requests_synced"`
	Error            string            `json:"error,omitempty"`
}

// SyncController orchestrates pulling the four upstream services into a
// fresh per-user snapshot. At most one sync per user is in flight; writes
// to the snapshot pointer and sync state happen only here.
type SyncController struct {
	db       *models.Database
	clients  ClientFactory
	cooldown time.Duration
	logger   *logrus.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// NewSyncController creates a new sync controller
func NewSyncController(db *models.Database, clients ClientFactory, cooldown time.Duration, logger *logrus.Logger) *SyncController {
	return &SyncController{
		db:       db,
		clients:  clients,
		cooldown: cooldown,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// Status returns the user's sync state for polling clients
func (c *SyncController) Status(userID string) (*models.SyncState, error) {
	state, err := c.db.GetSyncState(userID)
	if err != nil {
		return nil, err
	}
	state.IsSyncing = c.isInflight(userID)
	return state, nil
}

// Sync runs one sync for a user. It returns an error only when the sync is
// rejected before starting (unconfigured, rate limited, already running);
// a sync that ran returns its result, including the failed status.
func (c *SyncController) Sync(ctx context.Context, userID string) (*SyncResult, error) {
	settings, err := c.db.GetUserSettings(userID)
	if err == models.ErrNotFound || (err == nil && !settings.Jellyfin.Configured()) {
		return nil, apperrors.New(apperrors.KindConfiguration, "media server is not configured")
	}
	if err != nil {
		return nil, err
	}

	if err := c.acquire(userID); err != nil {
		return nil, err
	}
	defer c.release(userID)

	state, err := c.db.GetSyncState(userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := c.run(ctx, userID, settings, state)

	telemetry.SyncsTotal.WithLabelValues(string(result.Status)).Inc()
	telemetry.SyncDuration.Observe(time.Since(start).Seconds())

	return result, nil
}

// SyncAll syncs every configured user; rejected users are skipped. Used by
// the scheduler.
func (c *SyncController) SyncAll(ctx context.Context) error {
	userIDs, err := c.db.ListUserIDs()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	for _, userID := range userIDs {
		result, err := c.Sync(ctx, userID)
		if err != nil {
			c.logger.WithError(err).WithField("user", userID).Info("Skipping user")
			continue
		}
		c.logger.WithFields(logrus.Fields{
			"user":   userID,
			"status": result.Status,
		}).Info("Background sync finished")
	}

	return nil
}

// acquire rejects the sync when one is already running for the user or the
// cooldown has not elapsed, and marks the user in flight otherwise. The
// sync state is read under the lock: a caller that raced a running sync
// must see the finished sync's LastSyncedAt, not a stale one.
func (c *SyncController) acquire(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight[userID] {
		telemetry.SyncsRejectedTotal.WithLabelValues("in_flight").Inc()
		return apperrors.New(apperrors.KindConflict, "a sync is already in progress")
	}

	state, err := c.db.GetSyncState(userID)
	if err != nil {
		return err
	}

	if state.LastSyncedAt != nil {
		elapsed := time.Since(*state.LastSyncedAt)
		if elapsed < c.cooldown {
			wait := (c.cooldown - elapsed).Round(time.Second)
			telemetry.SyncsRejectedTotal.WithLabelValues("cooldown").Inc()
			return apperrors.New(apperrors.KindRateLimited, "synced recently, retry in %s", wait)
		}
	}

	c.inflight[userID] = true
	return nil
}

func (c *SyncController) release(userID string) {
	c.mu.Lock()
	delete(c.inflight, userID)
	c.mu.Unlock()
}

func (c *SyncController) isInflight(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[userID]
}

// run executes the sync steps. The media-server pull is mandatory; the
// request manager and acquisition managers are best-effort and only
// degrade the status to partial.
func (c *SyncController) run(ctx context.Context, userID string, settings *models.UserSettings, state *models.SyncState) *SyncResult {
	log := c.logger.WithField("user", userID)
	log.Info("Starting sync")

	state.IsSyncing = true
	state.Error = ""
	c.updateProgress(state, 1, "pulling media server library", 0, 0)

	// Step 1: mandatory media-server pull. Failure aborts and leaves the
	// prior snapshot and last_synced_at untouched.
	mediaServer, err := c.clients.MediaServer(settings.Jellyfin)
	if err != nil {
		log.WithError(err).Error("Media server client setup failed")
		return c.finishFailed(state, fmt.Errorf("media server pull failed: %w", err))
	}
	items, err := mediaServer.FetchLibrary(ctx, func(done, total int) {
		c.updateProgress(state, 1, "pulling media server library", done, total)
	})
	if err != nil {
		log.WithError(err).Error("Media server pull failed")
		return c.finishFailed(state, fmt.Errorf("media server pull failed: %w", err))
	}

	snapshot := &models.Snapshot{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
		Items:     items,
	}

	// Steps 2-4: optional sources. The request pull is independent of the
	// media tree; the size roll-ups depend on it and run on the merged
	// items. Each failure is recorded, none aborts.
	var failures []string
	var failuresMu sync.Mutex
	recordFailure := func(source string, err error) {
		log.WithError(err).WithField("source", source).Warn("Optional source pull failed")
		failuresMu.Lock()
		failures = append(failures, fmt.Sprintf("%s: %v", source, err))
		failuresMu.Unlock()
	}

	c.updateProgress(state, 2, "pulling optional sources", 0, 3)
	var completed int
	stepDone := func() {
		failuresMu.Lock()
		completed++
		c.updateProgress(state, 1+completed, "pulling optional sources", completed, 3)
		failuresMu.Unlock()
	}

	requestsOK := false
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer stepDone()
		if !settings.Jellyseerr.Configured() {
			return nil
		}
		client, err := c.clients.RequestManager(settings.Jellyseerr)
		if err != nil {
			recordFailure("request manager", err)
			return nil
		}
		requests, err := client.FetchRequests(groupCtx)
		if err != nil {
			recordFailure("request manager", err)
			return nil
		}
		snapshot.Requests = requests
		requestsOK = true
		return nil
	})

	group.Go(func() error {
		defer stepDone()
		if !settings.Radarr.Configured() {
			return nil
		}
		client, err := c.clients.MovieManager(settings.Radarr)
		if err != nil {
			recordFailure("movie manager", err)
			return nil
		}
		sizes, err := client.FetchMovieSizes(groupCtx)
		if err != nil {
			recordFailure("movie manager", err)
			return nil
		}
		enrichMovieSizes(snapshot.Items, sizes)
		return nil
	})

	group.Go(func() error {
		defer stepDone()
		if !settings.Sonarr.Configured() {
			return nil
		}
		client, err := c.clients.SeriesManager(settings.Sonarr)
		if err != nil {
			recordFailure("series manager", err)
			return nil
		}
		sizes, err := client.FetchSeasonSizes(groupCtx)
		if err != nil {
			recordFailure("series manager", err)
			return nil
		}
		enrichSeasonSizes(snapshot.Items, sizes)
		return nil
	})

	_ = group.Wait() // goroutines only record failures

	// A failed request pull keeps the previous snapshot's requests: media
	// data is never rolled back, the enrichment is just missing.
	if !requestsOK && settings.Jellyseerr.Configured() {
		if previous, err := c.db.GetCurrentSnapshot(userID); err == nil {
			snapshot.Requests = previous.Requests
		}
	}

	// Persist the new snapshot, then swap the pointer. Readers see either
	// the old snapshot or the new one.
	if err := c.db.SaveSnapshot(snapshot); err != nil {
		return c.finishFailed(state, fmt.Errorf("failed to persist snapshot: %w", err))
	}
	if err := c.db.SwapCurrentSnapshot(userID, snapshot.ID); err != nil {
		_ = c.db.DeleteSnapshot(snapshot.ID)
		return c.finishFailed(state, fmt.Errorf("failed to swap snapshot: %w", err))
	}

	status := models.SyncStatusSuccess
	if len(failures) > 0 {
		status = models.SyncStatusPartial
	}

	now := time.Now()
	state.LastSyncedAt = &now
	state.Status = status
	state.MediaItemsCount = len(snapshot.Items)
	state.RequestsCount = len(snapshot.Requests)
	state.Error = strings.Join(failures, "; ")
	state.IsSyncing = false
	state.Progress = nil
	if err := c.db.SaveSyncState(state); err != nil {
		log.WithError(err).Error("Failed to save sync state")
	}

	log.WithFields(logrus.Fields{
		"status":      status,
		"media_items": len(snapshot.Items),
		"requests":    len(snapshot.Requests),
	}).Info("Sync finished")

	return &SyncResult{
		Status:           status,
		MediaItemsSynced: len(snapshot.Items),
		RequestsSynced:   len(snapshot.Requests),
		Error:            state.Error,
	}
}

// finishFailed records a failed sync without touching the snapshot or
// last_synced_at
func (c *SyncController) finishFailed(state *models.SyncState, cause error) *SyncResult {
	state.Status = models.SyncStatusFailed
	state.Error = cause.Error()
	state.IsSyncing = false
	state.Progress = nil
	if err := c.db.SaveSyncState(state); err != nil {
		c.logger.WithError(err).Error("Failed to save sync state")
	}

	return &SyncResult{Status: models.SyncStatusFailed, Error: cause.Error()}
}

// updateProgress persists the progress record polled by clients
func (c *SyncController) updateProgress(state *models.SyncState, step int, label string, done, total int) {
	if step > totalSyncSteps {
		step = totalSyncSteps
	}
	state.Progress = &models.SyncProgress{
		CurrentStep:         step,
		TotalSteps:          totalSyncSteps,
		CurrentStepProgress: done,
		CurrentStepTotal:    total,
		CurrentLabel:        label,
	}
	if err := c.db.SaveSyncState(state); err != nil {
		c.logger.WithError(err).Debug("Failed to save sync progress")
	}
}

// enrichMovieSizes fills movie sizes the media server did not report
func enrichMovieSizes(items []models.MediaItem, sizes map[string]int64) {
	for i := range items {
		item := &items[i]
		if item.MediaType != models.MediaTypeMovie || item.SizeBytes > 0 || item.TMDBId == "" {
			continue
		}
		if size, ok := sizes[item.TMDBId]; ok {
			item.SizeBytes = size
		}
	}
}

// enrichSeasonSizes fills season size roll-ups the media server did not
// report and keeps the series total consistent
func enrichSeasonSizes(items []models.MediaItem, sizes map[string]map[int]int64) {
	for i := range items {
		item := &items[i]
		if item.MediaType != models.MediaTypeSeries || item.TVDBId == "" {
			continue
		}
		bySeason, ok := sizes[item.TVDBId]
		if !ok {
			continue
		}

		var total int64
		for s := range item.Seasons {
			season := &item.Seasons[s]
			if season.SizeBytes == 0 {
				if size, ok := bySeason[season.SeasonNumber]; ok {
					season.SizeBytes = size
				}
			}
			total += season.SizeBytes
		}
		if total > item.SizeBytes {
			item.SizeBytes = total
		}
	}
}
