package controllers

import (
	"fmt"
	"sort"
	"time"

	"github.com/janitarr/janitarr/internal/apperrors"
	"github.com/janitarr/janitarr/internal/models"
	"github.com/janitarr/janitarr/internal/utils"
	"github.com/sirupsen/logrus"
)

const bytesPerGB = float64(1 << 30)

// ProblemEpisode is the per-episode detail behind a series' language tag
type ProblemEpisode struct {
	SeasonNumber     int                   `json:"season_number"`
	EpisodeNumber    int                   `json:"episode_number"`
	Identifier       string                `json:"identifier"`
	Name             string                `json:"name"`
	MissingLanguages []models.LanguageFlag `json:"missing_languages"`
}

// IssueItem is one classified library item or open request
type IssueItem struct {
	ID                     string                `json:"id"`
	Name                   string                `json:"name"`
	MediaType              models.MediaType      `json:"media_type"`
	ProductionYear         *int                  `json:"production_year,omitempty"`
	SizeBytes              int64                 `json:"size_bytes"`
	LargestSeasonSizeBytes *int64                `json:"largest_season_size_bytes,omitempty"`
	Tags                   []models.IssueTag     `json:"tags"`
	LanguageIssues         []models.LanguageFlag `json:"language_issues,omitempty"`
	ProblematicEpisodes    []ProblemEpisode      `json:"problematic_episodes,omitempty"`

	// Request-only fields
	RequestStatus  models.RequestStatus `json:"request_status,omitempty"`
	RequestedBy    string               `json:"requested_by,omitempty"`
	RequestDate    *time.Time           `json:"request_date,omitempty"`
	MissingSeasons []int                `json:"missing_seasons,omitempty"`
	ReleaseDate    *time.Time           `json:"release_date,omitempty"`
}

// HasTag reports whether the item carries the given tag
func (i IssueItem) HasTag(tag models.IssueTag) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IssueReport is the classification result over the filtered,
// post-exemption item set
type IssueReport struct {
	Items              []IssueItem `json:"items"`
	TotalCount         int         `json:"total_count"`
	TotalSizeBytes     int64       `json:"total_size_bytes"`
	TotalSizeFormatted string      `json:"total_size_formatted"`
}

// IssuesController classifies snapshot items against the user's thresholds.
// It only ever reads the snapshot; tags are recomputed per request so
// threshold changes take effect without a re-sync.
type IssuesController struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewIssuesController creates a new issues controller
func NewIssuesController(db *models.Database, logger *logrus.Logger) *IssuesController {
	return &IssuesController{
		db:     db,
		logger: logger,
	}
}

// Classify computes the issue list for a user. filter narrows the result
// to one tag ("old", "large", "language", "request"); an empty filter
// returns the union.
func (c *IssuesController) Classify(userID, filter string) (*IssueReport, error) {
	switch filter {
	case "", "old", "large", "language", "request":
	default:
		return nil, apperrors.New(apperrors.KindValidation, "unknown filter %q", filter)
	}

	snapshot, err := c.db.GetCurrentSnapshot(userID)
	if err == models.ErrNotFound {
		// Never synced: an empty report, not an error.
		return &IssueReport{Items: []IssueItem{}, TotalSizeFormatted: utils.FormatBytes(0)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	thresholds, err := c.db.GetThresholds(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thresholds: %w", err)
	}

	whitelist, err := c.db.GetWhitelistEntries(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load whitelist: %w", err)
	}

	exemptions, err := c.db.GetEpisodeExemptions(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exemptions: %w", err)
	}

	report := classify(snapshot, thresholds, whitelist, exemptions, filter, time.Now())

	c.logger.WithFields(logrus.Fields{
		"user":   userID,
		"filter": filter,
		"count":  report.TotalCount,
	}).Debug("Classified issues")

	return report, nil
}

// classify is the pure derivation: snapshot + thresholds + overrides in,
// issue report out
func classify(snapshot *models.Snapshot, thresholds *models.Thresholds,
	whitelist []*models.WhitelistEntry, exemptions []*models.EpisodeExemption,
	filter string, now time.Time) *IssueReport {

	whitelisted := make(map[string]bool, len(whitelist))
	for _, entry := range whitelist {
		if entry.ActiveAt(now) {
			whitelisted[entry.JellyfinID] = true
		}
	}

	exempted := make(map[string]bool, len(exemptions))
	for _, exemption := range exemptions {
		if exemption.ActiveAt(now) {
			exempted[exemptionKey(exemption.JellyfinID, exemption.SeasonNumber, exemption.EpisodeNumber)] = true
		}
	}

	var items []IssueItem
	for _, item := range snapshot.Items {
		if whitelisted[item.ID] {
			continue
		}
		if classified, ok := classifyItem(item, thresholds, exempted, now); ok {
			items = append(items, classified)
		}
	}

	for _, request := range snapshot.Requests {
		if request.Status == models.RequestStatusPending || request.Status == models.RequestStatusPartiallyAvailable {
			items = append(items, convertOpenRequest(request))
		}
	}

	if filter != "" {
		filtered := items[:0]
		for _, item := range items {
			if item.HasTag(models.IssueTag(filter)) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	// Largest first; the stable sort keeps insertion order for ties.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SizeBytes > items[j].SizeBytes
	})

	report := &IssueReport{Items: items, TotalCount: len(items)}
	for _, item := range items {
		report.TotalSizeBytes += item.SizeBytes
	}
	report.TotalSizeFormatted = utils.FormatBytes(report.TotalSizeBytes)
	if report.Items == nil {
		report.Items = []IssueItem{}
	}
	return report
}

// classifyItem computes the tags for one library item; ok is false when no
// tag applies and the item should not appear in any report
func classifyItem(item models.MediaItem, thresholds *models.Thresholds,
	exempted map[string]bool, now time.Time) (IssueItem, bool) {

	classified := IssueItem{
		ID:             item.ID,
		Name:           item.Name,
		MediaType:      item.MediaType,
		ProductionYear: item.ProductionYear,
		SizeBytes:      item.SizeBytes,
	}

	if isOld(item, thresholds, now) {
		classified.Tags = append(classified.Tags, models.IssueTagOld)
	}

	if item.MediaType == models.MediaTypeMovie {
		limit := int64(thresholds.LargeMovieSizeGB * bytesPerGB)
		if item.SizeBytes > limit {
			classified.Tags = append(classified.Tags, models.IssueTagLarge)
		}
	} else {
		limit := int64(thresholds.LargeSeasonSizeGB * bytesPerGB)
		largest := largestSeasonSize(item)
		if largest > limit {
			classified.Tags = append(classified.Tags, models.IssueTagLarge)
			classified.LargestSeasonSizeBytes = &largest
		}
	}

	languageIssues, problematic := languageState(item, exempted)
	if len(languageIssues) > 0 {
		classified.Tags = append(classified.Tags, models.IssueTagLanguage)
		classified.LanguageIssues = languageIssues
		classified.ProblematicEpisodes = problematic
	}

	return classified, len(classified.Tags) > 0
}

// isOld applies the age rule: created long enough ago to be out of the
// grace period, and not played recently (or ever)
func isOld(item models.MediaItem, thresholds *models.Thresholds, now time.Time) bool {
	if item.DateCreated == nil {
		return false
	}

	minAgeCutoff := now.AddDate(0, -thresholds.MinAgeMonths, 0)
	if !item.DateCreated.Before(minAgeCutoff) {
		return false
	}

	if item.LastPlayedDate == nil {
		return true
	}
	oldCutoff := now.AddDate(0, -thresholds.OldContentMonths, 0)
	return item.LastPlayedDate.Before(oldCutoff)
}

// largestSeasonSize returns the size of the biggest season of a series
func largestSeasonSize(item models.MediaItem) int64 {
	var largest int64
	for _, season := range item.Seasons {
		if season.SizeBytes > largest {
			largest = season.SizeBytes
		}
	}
	return largest
}

// languageState derives the union of missing-language flags and, for
// series, the per-episode detail after exemptions are applied. Once every
// problematic episode of a series is exempted the language tag disappears.
func languageState(item models.MediaItem, exempted map[string]bool) ([]models.LanguageFlag, []ProblemEpisode) {
	if item.MediaType == models.MediaTypeMovie {
		if len(item.MissingLanguages) == 0 {
			return nil, nil
		}
		return item.MissingLanguages, nil
	}

	union := make(map[models.LanguageFlag]bool)
	var problematic []ProblemEpisode
	for _, season := range item.Seasons {
		for _, episode := range season.Episodes {
			if len(episode.MissingLanguages) == 0 {
				continue
			}
			if exempted[exemptionKey(item.ID, episode.SeasonNumber, episode.EpisodeNumber)] {
				continue
			}

			problematic = append(problematic, ProblemEpisode{
				SeasonNumber:     episode.SeasonNumber,
				EpisodeNumber:    episode.EpisodeNumber,
				Identifier:       episode.Identifier(),
				Name:             episode.Name,
				MissingLanguages: episode.MissingLanguages,
			})
			for _, flag := range episode.MissingLanguages {
				union[flag] = true
			}
		}
	}

	if len(problematic) == 0 {
		return nil, nil
	}

	flags := make([]models.LanguageFlag, 0, len(union))
	for flag := range union {
		flags = append(flags, flag)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
	return flags, problematic
}

// convertOpenRequest turns a pending or partially available request into a
// request-tagged issue entry. Requests are not library items and never
// combine with the other tags.
func convertOpenRequest(request models.Request) IssueItem {
	requestDate := request.RequestDate
	return IssueItem{
		ID:             fmt.Sprintf("request-%d", request.ID),
		Name:           request.Title,
		MediaType:      request.MediaType,
		SizeBytes:      request.SizeBytes,
		Tags:           []models.IssueTag{models.IssueTagRequest},
		RequestStatus:  request.Status,
		RequestedBy:    request.RequestedBy,
		RequestDate:    &requestDate,
		MissingSeasons: request.MissingSeasons,
		ReleaseDate:    request.ReleaseDate,
	}
}

// exemptionKey builds the lookup key for an episode exemption
func exemptionKey(jellyfinID string, season, episode int) string {
	return fmt.Sprintf("%s/%d/%d", jellyfinID, season, episode)
}
