package controllers

import (
	"time"

	"github.com/janitarr/janitarr/internal/apperrors"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/sirupsen/logrus"
)

// WhitelistController manages whitelist entries and episode exemptions:
// time-bound overrides that suppress otherwise-detected issues
type WhitelistController struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewWhitelistController creates a new whitelist controller
func NewWhitelistController(db *models.Database, logger *logrus.Logger) *WhitelistController {
	return &WhitelistController{
		db:     db,
		logger: logger,
	}
}

// AddContentRequest is the input for whitelisting a library item
type AddContentRequest struct {
	JellyfinID string                `json:"jellyfin_id"`
	Name       string                `json:"name"`
	MediaType  models.MediaType      `json:"media_type"`
	Duration   models.ExpiryDuration `json:"duration"`
	CustomDate *time.Time            `json:"custom_date,omitempty"`
}

// AddExemptionRequest is the input for exempting a single episode
type AddExemptionRequest struct {
	JellyfinID    string                `json:"jellyfin_id"`
	SeriesName    string                `json:"series_name"`
	SeasonNumber  int                   `json:"season_number"`
	EpisodeNumber int                   `json:"episode_number"`
	EpisodeName   string                `json:"episode_name"`
	Duration      models.ExpiryDuration `json:"duration"`
	CustomDate    *time.Time            `json:"custom_date,omitempty"`
}

// ContentEntry is a whitelist entry with its derived expiry status
type ContentEntry struct {
	*models.WhitelistEntry
	Expired bool `json:"expired"`
}

// ExemptionEntry is an episode exemption with its derived expiry status
type ExemptionEntry struct {
	*models.EpisodeExemption
	Expired bool `json:"expired"`
}

// IsActive reports whether an override with the given expiry still
// suppresses issues now. A nil expiry means permanent.
func IsActive(expiresAt *time.Time) bool {
	return expiresAt == nil || expiresAt.After(time.Now())
}

// ResolveExpiry converts a named duration into an absolute expiry
// timestamp. Permanent resolves to nil; custom resolves to the supplied
// date at local midnight, or nil when no date was supplied.
func ResolveExpiry(duration models.ExpiryDuration, customDate *time.Time) (*time.Time, error) {
	now := time.Now()

	switch duration {
	case models.ExpiryPermanent:
		return nil, nil
	case models.ExpiryOneWeek:
		t := now.AddDate(0, 0, 7)
		return &t, nil
	case models.ExpiryOneMonth:
		t := now.AddDate(0, 1, 0)
		return &t, nil
	case models.ExpiryThreeMonths:
		t := now.AddDate(0, 3, 0)
		return &t, nil
	case models.ExpirySixMonths:
		t := now.AddDate(0, 6, 0)
		return &t, nil
	case models.ExpiryCustom:
		if customDate == nil {
			return nil, nil
		}
		year, month, day := customDate.Local().Date()
		t := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
		return &t, nil
	default:
		return nil, apperrors.New(apperrors.KindValidation, "unknown duration %q", duration)
	}
}

// AddContent whitelists a library item, rejecting duplicates of an active
// entry with a conflict
func (c *WhitelistController) AddContent(userID string, req AddContentRequest) (*models.WhitelistEntry, error) {
	if req.JellyfinID == "" || req.Name == "" {
		return nil, apperrors.New(apperrors.KindValidation, "jellyfin_id and name are required")
	}
	if req.MediaType != models.MediaTypeMovie && req.MediaType != models.MediaTypeSeries {
		return nil, apperrors.New(apperrors.KindValidation, "media_type must be movie or series")
	}

	expiresAt, err := ResolveExpiry(req.Duration, req.CustomDate)
	if err != nil {
		return nil, err
	}

	entry := &models.WhitelistEntry{
		UserID:     userID,
		JellyfinID: req.JellyfinID,
		Name:       req.Name,
		MediaType:  req.MediaType,
		ExpiresAt:  expiresAt,
	}

	if err := c.db.CreateWhitelistEntry(entry); err != nil {
		if err == models.ErrActiveEntryExists {
			return nil, apperrors.New(apperrors.KindConflict, "item %q is already whitelisted", req.Name)
		}
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"jellyfin_id": req.JellyfinID,
		"name":        req.Name,
		"expires_at":  expiresAt,
	}).Info("Whitelisted content")

	return entry, nil
}

// RemoveContent deletes a whitelist entry by id. Deletion is idempotent by
// id: a second delete of the same id reports not found.
func (c *WhitelistController) RemoveContent(userID string, id uint64) error {
	if err := c.db.DeleteWhitelistEntry(userID, id); err != nil {
		if err == models.ErrNotFound {
			return apperrors.New(apperrors.KindNotFound, "whitelist entry %d not found", id)
		}
		return err
	}

	c.logger.WithField("entry_id", id).Info("Removed whitelist entry")
	return nil
}

// ListContent returns all whitelist entries for a user, expired ones
// included with a derived expired status
func (c *WhitelistController) ListContent(userID string) ([]ContentEntry, error) {
	entries, err := c.db.GetWhitelistEntries(userID)
	if err != nil {
		return nil, err
	}

	result := make([]ContentEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, ContentEntry{
			WhitelistEntry: entry,
			Expired:        !IsActive(entry.ExpiresAt),
		})
	}
	return result, nil
}

// AddEpisodeExemption exempts a single episode from language issues
func (c *WhitelistController) AddEpisodeExemption(userID string, req AddExemptionRequest) (*models.EpisodeExemption, error) {
	if req.JellyfinID == "" || req.SeriesName == "" {
		return nil, apperrors.New(apperrors.KindValidation, "jellyfin_id and series_name are required")
	}
	if req.SeasonNumber < 0 || req.EpisodeNumber < 1 {
		return nil, apperrors.New(apperrors.KindValidation, "invalid season or episode number")
	}

	expiresAt, err := ResolveExpiry(req.Duration, req.CustomDate)
	if err != nil {
		return nil, err
	}

	exemption := &models.EpisodeExemption{
		UserID:        userID,
		JellyfinID:    req.JellyfinID,
		SeriesName:    req.SeriesName,
		SeasonNumber:  req.SeasonNumber,
		EpisodeNumber: req.EpisodeNumber,
		EpisodeName:   req.EpisodeName,
		ExpiresAt:     expiresAt,
	}

	if err := c.db.CreateEpisodeExemption(exemption); err != nil {
		if err == models.ErrActiveEntryExists {
			return nil, apperrors.New(apperrors.KindConflict, "episode S%02dE%02d of %q is already exempted",
				req.SeasonNumber, req.EpisodeNumber, req.SeriesName)
		}
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"jellyfin_id": req.JellyfinID,
		"season":      req.SeasonNumber,
		"episode":     req.EpisodeNumber,
	}).Info("Exempted episode")

	return exemption, nil
}

// RemoveEpisodeExemption deletes an exemption by id
func (c *WhitelistController) RemoveEpisodeExemption(userID string, id uint64) error {
	if err := c.db.DeleteEpisodeExemption(userID, id); err != nil {
		if err == models.ErrNotFound {
			return apperrors.New(apperrors.KindNotFound, "episode exemption %d not found", id)
		}
		return err
	}

	c.logger.WithField("exemption_id", id).Info("Removed episode exemption")
	return nil
}

// ListEpisodeExemptions returns all episode exemptions for a user with
// derived expired status
func (c *WhitelistController) ListEpisodeExemptions(userID string) ([]ExemptionEntry, error) {
	exemptions, err := c.db.GetEpisodeExemptions(userID)
	if err != nil {
		return nil, err
	}

	result := make([]ExemptionEntry, 0, len(exemptions))
	for _, exemption := range exemptions {
		result = append(result, ExemptionEntry{
			EpisodeExemption: exemption,
			Expired:          !IsActive(exemption.ExpiresAt),
		})
	}
	return result, nil
}
