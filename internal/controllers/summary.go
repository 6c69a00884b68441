package controllers

import (
	"fmt"
	"sort"
	"time"

	"github.com/janitarr/janitarr/internal/models"
	"github.com/janitarr/janitarr/internal/utils"
	"github.com/sirupsen/logrus"
)

// recentWindow bounds the recently-available section of the summary
const recentWindow = 7 * 24 * time.Hour

// CategorySummary aggregates one issue category
type CategorySummary struct {
	Count              int    `json:"count"`
	TotalSizeBytes     int64  `json:"total_size_bytes"`
	TotalSizeFormatted string `json:"total_size_formatted"`
}

// RecentlyAvailableItem is a fulfilled request or a series with fresh
// episode additions
type RecentlyAvailableItem struct {
	Name          string           `json:"name"`
	MediaType     models.MediaType `json:"media_type"`
	AvailableDate *time.Time       `json:"available_date,omitempty"`
	EpisodeGroups string           `json:"episode_groups,omitempty"`
}

// ContentSummary is the dashboard roll-up across all issue categories
type ContentSummary struct {
	Old               CategorySummary         `json:"old"`
	Large             CategorySummary         `json:"large"`
	Language          CategorySummary         `json:"language"`
	Requests          CategorySummary         `json:"requests"`
	TotalIssues       int                     `json:"total_issues"`
	RecentlyAvailable []RecentlyAvailableItem `json:"recently_available"`
	LastSyncedAt      *time.Time              `json:"last_synced_at,omitempty"`
}

// SummaryController derives the dashboard summary from the classification
// output and the current snapshot
type SummaryController struct {
	db     *models.Database
	issues *IssuesController
	logger *logrus.Logger
}

// NewSummaryController creates a new summary controller
func NewSummaryController(db *models.Database, issues *IssuesController, logger *logrus.Logger) *SummaryController {
	return &SummaryController{db: db, issues: issues, logger: logger}
}

// Summarize builds the per-category roll-up for a user
func (c *SummaryController) Summarize(userID string) (*ContentSummary, error) {
	report, err := c.issues.Classify(userID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to classify issues: %w", err)
	}

	summary := &ContentSummary{RecentlyAvailable: []RecentlyAvailableItem{}}
	for _, item := range report.Items {
		for _, tag := range item.Tags {
			switch tag {
			case models.IssueTagOld:
				tally(&summary.Old, item.SizeBytes)
			case models.IssueTagLarge:
				tally(&summary.Large, item.SizeBytes)
			case models.IssueTagLanguage:
				tally(&summary.Language, item.SizeBytes)
			case models.IssueTagRequest:
				tally(&summary.Requests, item.SizeBytes)
			}
		}
	}
	summary.TotalIssues = report.TotalCount
	finishCategory(&summary.Old)
	finishCategory(&summary.Large)
	finishCategory(&summary.Language)
	finishCategory(&summary.Requests)

	state, err := c.db.GetSyncState(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}
	summary.LastSyncedAt = state.LastSyncedAt

	snapshot, err := c.db.GetCurrentSnapshot(userID)
	if err == models.ErrNotFound {
		return summary, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	summary.RecentlyAvailable = recentlyAvailable(snapshot, time.Now())

	c.logger.WithFields(logrus.Fields{
		"user":   userID,
		"issues": summary.TotalIssues,
	}).Debug("Built content summary")

	return summary, nil
}

func tally(category *CategorySummary, size int64) {
	category.Count++
	category.TotalSizeBytes += size
}

func finishCategory(category *CategorySummary) {
	category.TotalSizeFormatted = utils.FormatBytes(category.TotalSizeBytes)
}

// recentlyAvailable lists fulfilled requests plus series whose episodes
// appeared inside the recent window, newest first
func recentlyAvailable(snapshot *models.Snapshot, now time.Time) []RecentlyAvailableItem {
	cutoff := now.Add(-recentWindow)
	items := []RecentlyAvailableItem{}

	for _, request := range snapshot.Requests {
		if request.Status != models.RequestStatusAvailable {
			continue
		}
		date := request.RequestDate
		items = append(items, RecentlyAvailableItem{
			Name:          request.Title,
			MediaType:     request.MediaType,
			AvailableDate: &date,
		})
	}

	for _, item := range snapshot.Items {
		if item.MediaType != models.MediaTypeSeries {
			continue
		}

		var additions []EpisodeAddition
		known := make(map[int][]int)
		var newest time.Time
		for _, season := range item.Seasons {
			for _, episode := range season.Episodes {
				known[season.SeasonNumber] = append(known[season.SeasonNumber], episode.EpisodeNumber)
				if episode.DateCreated == nil || episode.DateCreated.Before(cutoff) {
					continue
				}
				additions = append(additions, EpisodeAddition{
					Season:    season.SeasonNumber,
					Episode:   episode.EpisodeNumber,
					AddedDate: episode.DateCreated.Format("2006-01-02"),
				})
				if episode.DateCreated.After(newest) {
					newest = *episode.DateCreated
				}
			}
		}
		if len(additions) == 0 {
			continue
		}

		date := newest
		items = append(items, RecentlyAvailableItem{
			Name:          item.Name,
			MediaType:     models.MediaTypeSeries,
			AvailableDate: &date,
			EpisodeGroups: FormatGroups(GroupAdditions(additions, known)),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].AvailableDate, items[j].AvailableDate
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})

	return items
}
