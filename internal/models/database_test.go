package models

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSnapshotSwap(t *testing.T) {
	db := openTestDatabase(t)

	_, err := db.GetCurrentSnapshot("user")
	assert.Equal(t, ErrNotFound, err)

	first := &Snapshot{ID: "snap-1", UserID: "user", CreatedAt: time.Now(),
		Items: []MediaItem{{ID: "m1", Name: "First"}}}
	require.NoError(t, db.SaveSnapshot(first))
	require.NoError(t, db.SwapCurrentSnapshot("user", first.ID))

	current, err := db.GetCurrentSnapshot("user")
	require.NoError(t, err)
	assert.Equal(t, "snap-1", current.ID)

	second := &Snapshot{ID: "snap-2", UserID: "user", CreatedAt: time.Now(),
		Items: []MediaItem{{ID: "m2", Name: "Second"}}}
	require.NoError(t, db.SaveSnapshot(second))
	require.NoError(t, db.SwapCurrentSnapshot("user", second.ID))

	current, err = db.GetCurrentSnapshot("user")
	require.NoError(t, err)
	assert.Equal(t, "snap-2", current.ID)
	require.Len(t, current.Items, 1)
	assert.Equal(t, "Second", current.Items[0].Name)
}

func TestSnapshotReadableDuringSwaps(t *testing.T) {
	db := openTestDatabase(t)

	first := &Snapshot{ID: "snap-0", UserID: "user", CreatedAt: time.Now()}
	require.NoError(t, db.SaveSnapshot(first))
	require.NoError(t, db.SwapCurrentSnapshot("user", first.ID))

	// Once a snapshot exists a reader must always resolve one, even while
	// swaps retire superseded snapshots underneath it.
	stop := make(chan struct{})
	readErr := make(chan error, 1)
	go func() {
		defer close(readErr)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := db.GetCurrentSnapshot("user"); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for i := 1; i <= 50; i++ {
		next := &Snapshot{ID: fmt.Sprintf("snap-%d", i), UserID: "user", CreatedAt: time.Now()}
		require.NoError(t, db.SaveSnapshot(next))
		require.NoError(t, db.SwapCurrentSnapshot("user", next.ID))
	}
	close(stop)

	if err, ok := <-readErr; ok {
		t.Fatalf("reader observed %v during swaps", err)
	}
}

func TestSnapshotsArePerUser(t *testing.T) {
	db := openTestDatabase(t)

	mine := &Snapshot{ID: "mine", UserID: "alice", CreatedAt: time.Now()}
	require.NoError(t, db.SaveSnapshot(mine))
	require.NoError(t, db.SwapCurrentSnapshot("alice", mine.ID))

	_, err := db.GetCurrentSnapshot("bob")
	assert.Equal(t, ErrNotFound, err)
}

func TestActiveWhitelistEntryConflict(t *testing.T) {
	db := openTestDatabase(t)

	entry := &WhitelistEntry{UserID: "user", JellyfinID: "m1", Name: "Movie", MediaType: MediaTypeMovie}
	require.NoError(t, db.CreateWhitelistEntry(entry))
	assert.NotZero(t, entry.ID)

	duplicate := &WhitelistEntry{UserID: "user", JellyfinID: "m1", Name: "Movie", MediaType: MediaTypeMovie}
	assert.Equal(t, ErrActiveEntryExists, db.CreateWhitelistEntry(duplicate))

	// An expired entry does not block a new one.
	expired := time.Now().AddDate(0, 0, -1)
	other := &WhitelistEntry{UserID: "user", JellyfinID: "m2", Name: "Other", MediaType: MediaTypeMovie, ExpiresAt: &expired}
	require.NoError(t, db.CreateWhitelistEntry(other))
	replacement := &WhitelistEntry{UserID: "user", JellyfinID: "m2", Name: "Other", MediaType: MediaTypeMovie}
	assert.NoError(t, db.CreateWhitelistEntry(replacement))
}

func TestDeleteWhitelistEntryChecksOwner(t *testing.T) {
	db := openTestDatabase(t)

	entry := &WhitelistEntry{UserID: "alice", JellyfinID: "m1", Name: "Movie", MediaType: MediaTypeMovie}
	require.NoError(t, db.CreateWhitelistEntry(entry))

	assert.Equal(t, ErrNotFound, db.DeleteWhitelistEntry("bob", entry.ID))
	require.NoError(t, db.DeleteWhitelistEntry("alice", entry.ID))
	assert.Equal(t, ErrNotFound, db.DeleteWhitelistEntry("alice", entry.ID))
}

func TestEpisodeExemptionKeyedPerEpisode(t *testing.T) {
	db := openTestDatabase(t)

	first := &EpisodeExemption{UserID: "user", JellyfinID: "s1", SeriesName: "Show", SeasonNumber: 1, EpisodeNumber: 1}
	require.NoError(t, db.CreateEpisodeExemption(first))

	duplicate := &EpisodeExemption{UserID: "user", JellyfinID: "s1", SeriesName: "Show", SeasonNumber: 1, EpisodeNumber: 1}
	assert.Equal(t, ErrActiveEntryExists, db.CreateEpisodeExemption(duplicate))

	sibling := &EpisodeExemption{UserID: "user", JellyfinID: "s1", SeriesName: "Show", SeasonNumber: 1, EpisodeNumber: 2}
	assert.NoError(t, db.CreateEpisodeExemption(sibling))
}

func TestThresholdsDefaultAndRoundTrip(t *testing.T) {
	db := openTestDatabase(t)

	thresholds, err := db.GetThresholds("user")
	require.NoError(t, err)
	assert.Equal(t, 4, thresholds.OldContentMonths)
	assert.Equal(t, 3, thresholds.MinAgeMonths)
	assert.Equal(t, 13.0, thresholds.LargeMovieSizeGB)
	assert.Equal(t, 15.0, thresholds.LargeSeasonSizeGB)

	thresholds.LargeMovieSizeGB = 20
	require.NoError(t, db.SaveThresholds(thresholds))

	reloaded, err := db.GetThresholds("user")
	require.NoError(t, err)
	assert.Equal(t, 20.0, reloaded.LargeMovieSizeGB)
}

func TestSyncStateDefault(t *testing.T) {
	db := openTestDatabase(t)

	state, err := db.GetSyncState("user")
	require.NoError(t, err)
	assert.Nil(t, state.LastSyncedAt)
	assert.Equal(t, "user", state.UserID)

	now := time.Now()
	state.LastSyncedAt = &now
	state.Status = SyncStatusSuccess
	require.NoError(t, db.SaveSyncState(state))

	reloaded, err := db.GetSyncState("user")
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastSyncedAt)
	assert.Equal(t, SyncStatusSuccess, reloaded.Status)
}

func TestListUserIDs(t *testing.T) {
	db := openTestDatabase(t)

	ids, err := db.ListUserIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, db.SaveUserSettings(&UserSettings{UserID: "alice"}))
	require.NoError(t, db.SaveUserSettings(&UserSettings{UserID: "bob"}))

	ids, err = db.ListUserIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)
}
