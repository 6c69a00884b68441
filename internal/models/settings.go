package models

import "time"

// Thresholds holds the per-user numeric limits driving classification.
// Changing them takes effect on the next classification read; no re-sync
// is needed because tags are computed per request.
type Thresholds struct {
	UserID            string  `boltholdKey:"UserID" json:"-"`
	OldContentMonths  int     `json:"old_content_months"`
	MinAgeMonths      int     `json:"min_age_months"`
	LargeMovieSizeGB  float64 `json:"large_movie_size_gb"`
	LargeSeasonSizeGB float64 `json:"large_season_size_gb"`
}

// DefaultThresholds returns the default limits for a user
func DefaultThresholds(userID string) *Thresholds {
	return &Thresholds{
		UserID:            userID,
		OldContentMonths:  4,
		MinAgeMonths:      3,
		LargeMovieSizeGB:  13,
		LargeSeasonSizeGB: 15,
	}
}

// WhitelistEntry suppresses every issue for one library item until it
// expires. ExpiresAt nil means permanent. At most one active entry may
// exist per (user, jellyfin id).
type WhitelistEntry struct {
	ID         uint64     `boltholdKey:"ID" json:"id"`
	UserID     string     `boltholdIndex:"UserID" json:"-"`
	JellyfinID string     `boltholdIndex:"JellyfinID" json:"jellyfin_id"`
	Name       string     `json:"name"`
	MediaType  MediaType  `json:"media_type"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// ActiveAt reports whether the entry still suppresses issues at t.
// A nil ExpiresAt means the entry is permanent.
func (e *WhitelistEntry) ActiveAt(t time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(t)
}

// EpisodeExemption suppresses language issues for a single episode. At most
// one active entry may exist per (user, jellyfin id, season, episode).
type EpisodeExemption struct {
	ID            uint64     `boltholdKey:"ID" json:"id"`
	UserID        string     `boltholdIndex:"UserID" json:"-"`
	JellyfinID    string     `boltholdIndex:"JellyfinID" json:"jellyfin_id"`
	SeriesName    string     `json:"series_name"`
	SeasonNumber  int        `json:"season_number"`
	EpisodeNumber int        `json:"episode_number"`
	EpisodeName   string     `json:"episode_name"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// ActiveAt reports whether the exemption still suppresses issues at t
func (e *EpisodeExemption) ActiveAt(t time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(t)
}

// SyncProgress reports where a running sync currently is so a polling
// client can render incremental feedback
type SyncProgress struct {
	CurrentStep         int    `json:"current_step"`
	TotalSteps          int    `json:"total_steps"`
	CurrentStepProgress int    `json:"current_step_progress"`
	CurrentStepTotal    int    `json:"current_step_total"`
	CurrentLabel        string `json:"current_label"`
}

// SyncState is the per-user singleton tracking the last sync outcome and
// any sync currently in flight
type SyncState struct {
	UserID          string        `boltholdKey:"UserID" json:"-"`
	LastSyncedAt    *time.Time    `json:"last_synced_at,omitempty"`
	Status          SyncStatus    `json:"status,omitempty"`
	MediaItemsCount int           `json:"media_items_count"`
	RequestsCount   int           `json:"requests_count"`
	Error           string        `json:"error,omitempty"`
	IsSyncing       bool          `json:"is_syncing"`
	Progress        *SyncProgress `json:"progress,omitempty"`
}

// ServiceConfig holds the base URL and API key for one upstream service
type ServiceConfig struct {
	URL    string
	APIKey string
}

// Configured reports whether both URL and key are set
func (c ServiceConfig) Configured() bool {
	return c.URL != "" && c.APIKey != ""
}

// UserSettings is the per-user credential store consulted by the
// orchestrator before each sync
type UserSettings struct {
	UserID     string `boltholdKey:"UserID"`
	Jellyfin   ServiceConfig
	Jellyseerr ServiceConfig
	Radarr     ServiceConfig
	Sonarr     ServiceConfig
	UpdatedAt  time.Time
}
