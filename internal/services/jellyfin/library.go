package jellyfin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/janitarr/janitarr/internal/models"
	"github.com/sirupsen/logrus"
)

const pageSize = 200

// itemFields is the field list requested for library items
const itemFields = "DateCreated,Path,MediaSources,ProviderIds"

// User represents a Jellyfin user account
type User struct {
	ID     string `json:"Id"`
	Name   string `json:"Name"`
	Policy struct {
		IsAdministrator bool `json:"IsAdministrator"`
	} `json:"Policy"`
}

// ItemsResponse represents a paginated list of items
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// Item represents a media item (movie, series, season or episode)
type Item struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	Type              string            `json:"Type"`
	ProductionYear    int               `json:"ProductionYear,omitempty"`
	DateCreated       string            `json:"DateCreated,omitempty"`
	Path              string            `json:"Path,omitempty"`
	ParentIndexNumber *int              `json:"ParentIndexNumber,omitempty"` // Season number
	IndexNumber       *int              `json:"IndexNumber,omitempty"`       // Episode or season number
	ProviderIds       map[string]string `json:"ProviderIds,omitempty"`
	UserData          *UserData         `json:"UserData,omitempty"`
	MediaSources      []MediaSource     `json:"MediaSources,omitempty"`
	MediaStreams      []MediaStream     `json:"MediaStreams,omitempty"`
}

// UserData contains watch state for an item
type UserData struct {
	Played         bool   `json:"Played"`
	PlayCount      int    `json:"PlayCount"`
	LastPlayedDate string `json:"LastPlayedDate,omitempty"`
}

// MediaSource represents a file backing an item
type MediaSource struct {
	Path string `json:"Path"`
	Size int64  `json:"Size"`
}

// MediaStream represents one audio/subtitle/video track
type MediaStream struct {
	Type     string `json:"Type"`     // "Audio", "Subtitle", "Video"
	Language string `json:"Language"` // ISO 639-2, e.g. "eng", "fre"
}

// FetchLibrary pulls the full library tree for the admin account: movies,
// series, seasons and episodes with sizes, watch state and track languages.
// progress is invoked as series are expanded so the orchestrator can report
// item-level counters; it may be nil.
func (c *Client) FetchLibrary(ctx context.Context, progress func(done, total int)) ([]models.MediaItem, error) {
	userID, err := c.resolveUserID(ctx)
	if err != nil {
		return nil, err
	}

	// Movies carry their language flags on the item itself, so their
	// streams must be requested here; series get streams per episode.
	movies, err := c.fetchItems(ctx, userID, "Movie", itemFields+",MediaStreams")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movies: %w", err)
	}

	series, err := c.fetchItems(ctx, userID, "Series", itemFields)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch series: %w", err)
	}

	items := make([]models.MediaItem, 0, len(movies)+len(series))

	for _, movie := range movies {
		items = append(items, convertMovie(movie))
	}

	for i, show := range series {
		item, err := c.expandSeries(ctx, userID, show)
		if err != nil {
			return nil, fmt.Errorf("failed to expand series %q: %w", show.Name, err)
		}
		items = append(items, item)

		if progress != nil {
			progress(i+1, len(series))
		}
	}

	c.logger.WithFields(logrus.Fields{
		"movies": len(movies),
		"series": len(series),
	}).Debug("Jellyfin library fetched")

	return items, nil
}

// fetchItems pages through the user's library for one item type
func (c *Client) fetchItems(ctx context.Context, userID, itemType, fields string) ([]Item, error) {
	var all []Item

	for start := 0; ; start += pageSize {
		params := url.Values{}
		params.Set("IncludeItemTypes", itemType)
		params.Set("Recursive", "true")
		params.Set("Fields", fields)
		params.Set("StartIndex", strconv.Itoa(start))
		params.Set("Limit", strconv.Itoa(pageSize))

		var page ItemsResponse
		if err := c.doRequest(ctx, "/Users/"+userID+"/Items", params, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)
		if start+pageSize >= page.TotalRecordCount || len(page.Items) == 0 {
			break
		}
	}

	return all, nil
}

// expandSeries fetches the episodes of one series and rolls them up into
// seasons with sizes and missing-language flags
func (c *Client) expandSeries(ctx context.Context, userID string, show Item) (models.MediaItem, error) {
	params := url.Values{}
	params.Set("UserId", userID)
	params.Set("Fields", itemFields+",MediaStreams")

	var page ItemsResponse
	if err := c.doRequest(ctx, "/Shows/"+show.ID+"/Episodes", params, &page); err != nil {
		return models.MediaItem{}, err
	}

	item := convertSeries(show)

	seasons := make(map[int]*models.Season)
	var order []int
	for _, ep := range page.Items {
		seasonNumber := 0
		if ep.ParentIndexNumber != nil {
			seasonNumber = *ep.ParentIndexNumber
		}
		episodeNumber := 0
		if ep.IndexNumber != nil {
			episodeNumber = *ep.IndexNumber
		}

		season, ok := seasons[seasonNumber]
		if !ok {
			season = &models.Season{SeasonNumber: seasonNumber}
			seasons[seasonNumber] = season
			order = append(order, seasonNumber)
		}

		size := itemSize(ep)
		season.SizeBytes += size
		season.Episodes = append(season.Episodes, models.Episode{
			SeasonNumber:     seasonNumber,
			EpisodeNumber:    episodeNumber,
			Name:             ep.Name,
			DateCreated:      parseDate(ep.DateCreated),
			MissingLanguages: missingLanguages(ep.MediaStreams),
		})
	}

	for _, seasonNumber := range order {
		item.Seasons = append(item.Seasons, *seasons[seasonNumber])
		item.SizeBytes += seasons[seasonNumber].SizeBytes
	}

	return item, nil
}

// convertMovie maps a Jellyfin movie to the snapshot model
func convertMovie(item Item) models.MediaItem {
	converted := convertCommon(item)
	converted.MediaType = models.MediaTypeMovie
	converted.SizeBytes = itemSize(item)
	converted.MissingLanguages = missingLanguages(item.MediaStreams)
	return converted
}

// convertSeries maps a Jellyfin series shell to the snapshot model; seasons
// and sizes are filled by expandSeries
func convertSeries(item Item) models.MediaItem {
	converted := convertCommon(item)
	converted.MediaType = models.MediaTypeSeries
	return converted
}

func convertCommon(item Item) models.MediaItem {
	converted := models.MediaItem{
		ID:          item.ID,
		Name:        item.Name,
		Path:        item.Path,
		DateCreated: parseDate(item.DateCreated),
		TMDBId:      item.ProviderIds["Tmdb"],
		IMDBId:      item.ProviderIds["Imdb"],
		TVDBId:      item.ProviderIds["Tvdb"],
	}

	if item.ProductionYear > 0 {
		year := item.ProductionYear
		converted.ProductionYear = &year
	}

	if item.UserData != nil {
		converted.Played = item.UserData.Played
		converted.LastPlayedDate = parseDate(item.UserData.LastPlayedDate)
	}

	return converted
}

// itemSize returns the on-disk size of an item's first media source
func itemSize(item Item) int64 {
	if len(item.MediaSources) == 0 {
		return 0
	}
	return item.MediaSources[0].Size
}

// missingLanguages derives the missing-track flags from an item's streams.
// The French subtitle flag is only raised when there is no French audio
// either; a dubbed track makes subtitles redundant.
func missingLanguages(streams []MediaStream) []models.LanguageFlag {
	hasEnAudio := false
	hasFrAudio := false
	hasFrSubs := false

	for _, stream := range streams {
		switch stream.Type {
		case "Audio":
			switch stream.Language {
			case "eng", "en":
				hasEnAudio = true
			case "fre", "fra", "fr":
				hasFrAudio = true
			}
		case "Subtitle":
			switch stream.Language {
			case "fre", "fra", "fr":
				hasFrSubs = true
			}
		}
	}

	// Items with no stream metadata at all are not flagged; the scan has
	// simply not analysed them yet.
	if len(streams) == 0 {
		return nil
	}

	var flags []models.LanguageFlag
	if !hasEnAudio {
		flags = append(flags, models.MissingEnAudio)
	}
	if !hasFrAudio {
		flags = append(flags, models.MissingFrAudio)
	}
	if !hasFrAudio && !hasFrSubs {
		flags = append(flags, models.MissingFrSubs)
	}
	return flags
}

// parseDate parses Jellyfin's ISO timestamps, returning nil for empty or
// malformed values
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
