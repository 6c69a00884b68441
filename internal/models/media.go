package models

import (
	"fmt"
	"time"
)

// MediaItem represents a library item pulled from the media server.
// Items are owned by their snapshot and replaced wholesale on every
// successful sync of the media server; nothing mutates them afterwards.
type MediaItem struct {
	ID             string `boltholdIndex:"ID"` // Jellyfin item id, unique per user
	Name           string
	MediaType      MediaType
	ProductionYear *int
	SizeBytes      int64
	DateCreated    *time.Time
	LastPlayedDate *time.Time
	Played         bool
	Path           string

	// External ids (from provider metadata)
	TMDBId string
	IMDBId string
	TVDBId string

	// Movies only: the file-level missing-language flags. Series carry
	// these per episode instead.
	MissingLanguages []LanguageFlag

	// Series only
	Seasons []Season
}

// Season groups episodes of a series with its on-disk size roll-up
type Season struct {
	SeasonNumber int
	SizeBytes    int64
	Episodes     []Episode
}

// Episode represents a single episode and its missing-language state
type Episode struct {
	SeasonNumber     int
	EpisodeNumber    int
	Name             string
	DateCreated      *time.Time
	MissingLanguages []LanguageFlag
}

// Identifier returns the derived SxxEyy identifier for an episode
func (e Episode) Identifier() string {
	return fmt.Sprintf("S%02dE%02d", e.SeasonNumber, e.EpisodeNumber)
}

// Request represents a media request pulled from the request manager
type Request struct {
	ID             int
	Title          string
	MediaType      MediaType
	Status         RequestStatus
	RequestedBy    string
	RequestDate    time.Time
	MissingSeasons []int // series only
	ReleaseDate    *time.Time
	TMDBId         string
	SizeBytes      int64
}

// Snapshot is the immutable per-user result of one sync. The current
// snapshot is addressed through a per-user pointer record swapped after the
// sync completes, so classification reads never observe a half-merged state.
type Snapshot struct {
	ID        string `boltholdKey:"ID"` // sync id (uuid)
	UserID    string `boltholdIndex:"UserID"`
	CreatedAt time.Time
	Items     []MediaItem
	Requests  []Request
}
