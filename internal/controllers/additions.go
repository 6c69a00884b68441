package controllers

import (
	"fmt"
	"sort"
	"strings"
)

// maxDisplayGroups is how many addition groups are shown before truncating
const maxDisplayGroups = 3

// EpisodeAddition is one recently-added episode, bucketed by the day it
// appeared in the library
type EpisodeAddition struct {
	Season    int
	Episode   int
	AddedDate string // YYYY-MM-DD
}

// AdditionGroup is a display-ready run of episodes added on the same day
type AdditionGroup struct {
	AddedDate      string `json:"added_date"`
	DisplayText    string `json:"display_text"`
	Season         int    `json:"season"`
	EpisodeNumbers []int  `json:"episode_numbers"`
	IsFullSeason   bool   `json:"is_full_season"`
}

// GroupAdditions collapses recently-added episodes into display groups:
// episodes are bucketed by (season, added date), consecutive episode
// numbers collapse into ranges, and a run covering every known episode of
// its season is labelled as the whole season. knownEpisodes maps a season
// number to the full episode set the library knows for it.
func GroupAdditions(additions []EpisodeAddition, knownEpisodes map[int][]int) []AdditionGroup {
	type bucketKey struct {
		season int
		date   string
	}

	buckets := make(map[bucketKey][]int)
	for _, addition := range additions {
		key := bucketKey{season: addition.Season, date: addition.AddedDate}
		buckets[key] = append(buckets[key], addition.Episode)
	}

	var groups []AdditionGroup
	for key, episodes := range buckets {
		sort.Ints(episodes)

		for _, run := range splitRuns(episodes) {
			group := AdditionGroup{
				AddedDate:      key.date,
				Season:         key.season,
				EpisodeNumbers: run,
			}

			if coversSeason(run, knownEpisodes[key.season]) {
				group.IsFullSeason = true
				group.DisplayText = fmt.Sprintf("Season %d", key.season)
			} else if len(run) == 1 {
				group.DisplayText = fmt.Sprintf("S%02dE%02d", key.season, run[0])
			} else {
				group.DisplayText = fmt.Sprintf("S%02dE%02d-E%02d", key.season, run[0], run[len(run)-1])
			}

			groups = append(groups, group)
		}
	}

	// Newest additions first; season then first episode break date ties so
	// the order is deterministic.
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].AddedDate != groups[j].AddedDate {
			return groups[i].AddedDate > groups[j].AddedDate
		}
		if groups[i].Season != groups[j].Season {
			return groups[i].Season < groups[j].Season
		}
		return groups[i].EpisodeNumbers[0] < groups[j].EpisodeNumbers[0]
	})

	return groups
}

// FormatGroups renders at most three group labels joined by ", ",
// appending "..." when more groups exist
func FormatGroups(groups []AdditionGroup) string {
	labels := make([]string, 0, maxDisplayGroups)
	for i, group := range groups {
		if i == maxDisplayGroups {
			break
		}
		labels = append(labels, group.DisplayText)
	}

	text := strings.Join(labels, ", ")
	if len(groups) > maxDisplayGroups {
		text += "..."
	}
	return text
}

// splitRuns splits sorted episode numbers into maximal runs of consecutive
// integers, dropping duplicates
func splitRuns(sorted []int) [][]int {
	var runs [][]int
	var current []int

	for _, episode := range sorted {
		if len(current) > 0 && episode == current[len(current)-1] {
			continue // duplicate
		}
		if len(current) > 0 && episode != current[len(current)-1]+1 {
			runs = append(runs, current)
			current = nil
		}
		current = append(current, episode)
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}

	return runs
}

// coversSeason reports whether the run equals the full known episode set
func coversSeason(run, known []int) bool {
	if len(known) == 0 || len(run) != len(known) {
		return false
	}

	inRun := make(map[int]bool, len(run))
	for _, episode := range run {
		inRun[episode] = true
	}
	for _, episode := range known {
		if !inRun[episode] {
			return false
		}
	}
	return true
}
