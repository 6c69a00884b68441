package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupAdditionsConsecutiveRange(t *testing.T) {
	additions := []EpisodeAddition{
		{Season: 1, Episode: 3, AddedDate: "2026-08-20"},
		{Season: 1, Episode: 1, AddedDate: "2026-08-20"},
		{Season: 1, Episode: 2, AddedDate: "2026-08-20"},
	}
	known := map[int][]int{1: {1, 2, 3, 4, 5}}

	groups := GroupAdditions(additions, known)
	require.Len(t, groups, 1)
	assert.Equal(t, "S01E01-E03", groups[0].DisplayText)
	assert.Equal(t, []int{1, 2, 3}, groups[0].EpisodeNumbers)
	assert.False(t, groups[0].IsFullSeason)
}

func TestGroupAdditionsSplitsNonConsecutive(t *testing.T) {
	additions := []EpisodeAddition{
		{Season: 2, Episode: 1, AddedDate: "2026-08-20"},
		{Season: 2, Episode: 2, AddedDate: "2026-08-20"},
		{Season: 2, Episode: 5, AddedDate: "2026-08-20"},
	}

	groups := GroupAdditions(additions, map[int][]int{2: {1, 2, 3, 4, 5}})
	require.Len(t, groups, 2)
	assert.Equal(t, "S02E01-E02", groups[0].DisplayText)
	assert.Equal(t, "S02E05", groups[1].DisplayText)
}

func TestGroupAdditionsFullSeason(t *testing.T) {
	var additions []EpisodeAddition
	known := map[int][]int{1: {}}
	for e := 1; e <= 22; e++ {
		additions = append(additions, EpisodeAddition{Season: 1, Episode: e, AddedDate: "2026-08-19"})
		known[1] = append(known[1], e)
	}

	groups := GroupAdditions(additions, known)
	require.Len(t, groups, 1)
	assert.Equal(t, "Season 1", groups[0].DisplayText)
	assert.True(t, groups[0].IsFullSeason)
}

func TestGroupAdditionsPartialSeasonIsNotFullSeason(t *testing.T) {
	additions := []EpisodeAddition{
		{Season: 1, Episode: 1, AddedDate: "2026-08-19"},
		{Season: 1, Episode: 2, AddedDate: "2026-08-19"},
	}
	// The library knows a third episode added on another day.
	known := map[int][]int{1: {1, 2, 3}}

	groups := GroupAdditions(additions, known)
	require.Len(t, groups, 1)
	assert.False(t, groups[0].IsFullSeason)
	assert.Equal(t, "S01E01-E02", groups[0].DisplayText)
}

func TestGroupAdditionsSortsNewestFirst(t *testing.T) {
	additions := []EpisodeAddition{
		{Season: 1, Episode: 1, AddedDate: "2026-08-10"},
		{Season: 3, Episode: 4, AddedDate: "2026-08-21"},
		{Season: 2, Episode: 7, AddedDate: "2026-08-15"},
	}

	groups := GroupAdditions(additions, nil)
	require.Len(t, groups, 3)
	assert.Equal(t, "2026-08-21", groups[0].AddedDate)
	assert.Equal(t, "2026-08-15", groups[1].AddedDate)
	assert.Equal(t, "2026-08-10", groups[2].AddedDate)
}

func TestGroupAdditionsDeduplicates(t *testing.T) {
	additions := []EpisodeAddition{
		{Season: 1, Episode: 4, AddedDate: "2026-08-20"},
		{Season: 1, Episode: 4, AddedDate: "2026-08-20"},
	}

	groups := GroupAdditions(additions, nil)
	require.Len(t, groups, 1)
	assert.Equal(t, []int{4}, groups[0].EpisodeNumbers)
	assert.Equal(t, "S01E04", groups[0].DisplayText)
}

func TestGroupAdditionsCoverageRoundTrip(t *testing.T) {
	// Every input episode must appear in exactly one group.
	additions := []EpisodeAddition{
		{Season: 1, Episode: 1, AddedDate: "2026-08-20"},
		{Season: 1, Episode: 2, AddedDate: "2026-08-20"},
		{Season: 1, Episode: 9, AddedDate: "2026-08-20"},
		{Season: 2, Episode: 1, AddedDate: "2026-08-20"},
		{Season: 1, Episode: 5, AddedDate: "2026-08-18"},
	}

	groups := GroupAdditions(additions, nil)

	type episode struct{ season, number int }
	seen := make(map[episode]int)
	for _, group := range groups {
		for _, number := range group.EpisodeNumbers {
			seen[episode{group.Season, number}]++
		}
	}

	require.Len(t, seen, len(additions))
	for _, addition := range additions {
		assert.Equal(t, 1, seen[episode{addition.Season, addition.Episode}])
	}
}

func TestFormatGroupsTruncates(t *testing.T) {
	groups := []AdditionGroup{
		{DisplayText: "Season 3"},
		{DisplayText: "S02E01-E04"},
		{DisplayText: "S01E07"},
		{DisplayText: "S01E01"},
	}

	assert.Equal(t, "Season 3, S02E01-E04, S01E07...", FormatGroups(groups))
	assert.Equal(t, "Season 3, S02E01-E04, S01E07", FormatGroups(groups[:3]))
	assert.Equal(t, "", FormatGroups(nil))
}
