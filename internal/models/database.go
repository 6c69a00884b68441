package models

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ErrActiveEntryExists is returned when inserting a whitelist entry or
// episode exemption whose key already has an active entry.
var ErrActiveEntryExists = errors.New("active entry already exists")

// ErrNotFound is returned for lookups and deletes of unknown records.
var ErrNotFound = bolthold.ErrNotFound

// snapshotPointer addresses the current snapshot for one user. Swapping it
// is the commit point of a sync.
type snapshotPointer struct {
	UserID     string `boltholdKey:"UserID"`
	SnapshotID string
}

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store

	// Serializes check-and-insert of whitelist/exemption keys so duplicate
	// active entries produce a deterministic conflict.
	mu sync.Mutex
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Snapshot operations

// SaveSnapshot persists a freshly built snapshot without making it current
func (db *Database) SaveSnapshot(snapshot *Snapshot) error {
	return db.store.Insert(snapshot.ID, snapshot)
}

// SwapCurrentSnapshot points the user at a new snapshot and removes the
// superseded one. Readers either see the old snapshot or the new one,
// never a mix.
func (db *Database) SwapCurrentSnapshot(userID, snapshotID string) error {
	err := db.store.Bolt().Update(func(tx *bbolt.Tx) error {
		var previous string
		var pointer snapshotPointer
		if err := db.store.TxGet(tx, userID, &pointer); err == nil {
			previous = pointer.SnapshotID
		}

		pointer = snapshotPointer{UserID: userID, SnapshotID: snapshotID}
		if err := db.store.TxUpsert(tx, userID, &pointer); err != nil {
			return fmt.Errorf("failed to swap snapshot pointer: %w", err)
		}

		if previous != "" && previous != snapshotID {
			if err := db.store.TxDelete(tx, previous, &Snapshot{}); err != nil && err != bolthold.ErrNotFound {
				return fmt.Errorf("failed to delete superseded snapshot: %w", err)
			}
		}
		return nil
	})
	return err
}

// GetCurrentSnapshot retrieves the user's current snapshot, or ErrNotFound
// if no sync has completed yet. Pointer and snapshot are resolved in one
// transaction so a concurrent swap cannot leave the pointer dangling
// between the two reads.
func (db *Database) GetCurrentSnapshot(userID string) (*Snapshot, error) {
	var snapshot Snapshot
	err := db.store.Bolt().View(func(tx *bbolt.Tx) error {
		var pointer snapshotPointer
		if err := db.store.TxGet(tx, userID, &pointer); err != nil {
			return err
		}
		return db.store.TxGet(tx, pointer.SnapshotID, &snapshot)
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DeleteSnapshot removes an orphaned snapshot (a failed sync's partial write)
func (db *Database) DeleteSnapshot(snapshotID string) error {
	err := db.store.Delete(snapshotID, &Snapshot{})
	if err == bolthold.ErrNotFound {
		return nil
	}
	return err
}

// Sync state operations

// GetSyncState retrieves the user's sync state, creating an empty one if
// the user has never synced
func (db *Database) GetSyncState(userID string) (*SyncState, error) {
	var state SyncState
	err := db.store.Get(userID, &state)
	if err == bolthold.ErrNotFound {
		return &SyncState{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveSyncState persists the user's sync state
func (db *Database) SaveSyncState(state *SyncState) error {
	return db.store.Upsert(state.UserID, state)
}

// Whitelist operations

// CreateWhitelistEntry inserts a whitelist entry, enforcing at most one
// active entry per (user, jellyfin id)
func (db *Database) CreateWhitelistEntry(entry *WhitelistEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, err := db.GetActiveWhitelistEntry(entry.UserID, entry.JellyfinID, time.Now())
	if err != nil && err != bolthold.ErrNotFound {
		return err
	}
	if existing != nil {
		return ErrActiveEntryExists
	}

	entry.CreatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), entry)
}

// GetWhitelistEntries retrieves all whitelist entries for a user, including
// expired ones (management listings derive their expired status)
func (db *Database) GetWhitelistEntries(userID string) ([]*WhitelistEntry, error) {
	var entries []*WhitelistEntry
	err := db.store.Find(&entries, bolthold.Where("UserID").Eq(userID).Index("UserID"))
	return entries, err
}

// GetActiveWhitelistEntry retrieves the active entry for an item, or
// ErrNotFound if none is active at the given time
func (db *Database) GetActiveWhitelistEntry(userID, jellyfinID string, now time.Time) (*WhitelistEntry, error) {
	var entries []*WhitelistEntry
	err := db.store.Find(&entries, bolthold.Where("JellyfinID").Eq(jellyfinID).Index("JellyfinID").And("UserID").Eq(userID))
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.ActiveAt(now) {
			return entry, nil
		}
	}
	return nil, bolthold.ErrNotFound
}

// DeleteWhitelistEntry deletes an entry by id, returning ErrNotFound for
// unknown ids
func (db *Database) DeleteWhitelistEntry(userID string, id uint64) error {
	var entry WhitelistEntry
	if err := db.store.Get(id, &entry); err != nil {
		return err
	}
	if entry.UserID != userID {
		return bolthold.ErrNotFound
	}
	return db.store.Delete(id, &WhitelistEntry{})
}

// Episode exemption operations

// CreateEpisodeExemption inserts an exemption, enforcing at most one active
// entry per (user, jellyfin id, season, episode)
func (db *Database) CreateEpisodeExemption(exemption *EpisodeExemption) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, err := db.GetActiveEpisodeExemption(exemption.UserID, exemption.JellyfinID,
		exemption.SeasonNumber, exemption.EpisodeNumber, time.Now())
	if err != nil && err != bolthold.ErrNotFound {
		return err
	}
	if existing != nil {
		return ErrActiveEntryExists
	}

	exemption.CreatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), exemption)
}

// GetEpisodeExemptions retrieves all episode exemptions for a user
func (db *Database) GetEpisodeExemptions(userID string) ([]*EpisodeExemption, error) {
	var exemptions []*EpisodeExemption
	err := db.store.Find(&exemptions, bolthold.Where("UserID").Eq(userID).Index("UserID"))
	return exemptions, err
}

// GetActiveEpisodeExemption retrieves the active exemption for an episode,
// or ErrNotFound if none is active at the given time
func (db *Database) GetActiveEpisodeExemption(userID, jellyfinID string, season, episode int, now time.Time) (*EpisodeExemption, error) {
	var exemptions []*EpisodeExemption
	err := db.store.Find(&exemptions, bolthold.Where("JellyfinID").Eq(jellyfinID).Index("JellyfinID").
		And("UserID").Eq(userID).
		And("SeasonNumber").Eq(season).
		And("EpisodeNumber").Eq(episode))
	if err != nil {
		return nil, err
	}

	for _, exemption := range exemptions {
		if exemption.ActiveAt(now) {
			return exemption, nil
		}
	}
	return nil, bolthold.ErrNotFound
}

// DeleteEpisodeExemption deletes an exemption by id, returning ErrNotFound
// for unknown ids
func (db *Database) DeleteEpisodeExemption(userID string, id uint64) error {
	var exemption EpisodeExemption
	if err := db.store.Get(id, &exemption); err != nil {
		return err
	}
	if exemption.UserID != userID {
		return bolthold.ErrNotFound
	}
	return db.store.Delete(id, &EpisodeExemption{})
}

// Threshold operations

// GetThresholds retrieves the user's thresholds, falling back to defaults
// for users that never changed them
func (db *Database) GetThresholds(userID string) (*Thresholds, error) {
	var thresholds Thresholds
	err := db.store.Get(userID, &thresholds)
	if err == bolthold.ErrNotFound {
		return DefaultThresholds(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return &thresholds, nil
}

// SaveThresholds persists the user's thresholds
func (db *Database) SaveThresholds(thresholds *Thresholds) error {
	return db.store.Upsert(thresholds.UserID, thresholds)
}

// User settings operations

// GetUserSettings retrieves a user's upstream service credentials
func (db *Database) GetUserSettings(userID string) (*UserSettings, error) {
	var settings UserSettings
	if err := db.store.Get(userID, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveUserSettings persists a user's upstream service credentials
func (db *Database) SaveUserSettings(settings *UserSettings) error {
	settings.UpdatedAt = time.Now()
	return db.store.Upsert(settings.UserID, settings)
}

// ListUserIDs returns every user with stored service settings
func (db *Database) ListUserIDs() ([]string, error) {
	var settings []*UserSettings
	if err := db.store.Find(&settings, nil); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(settings))
	for _, s := range settings {
		ids = append(ids, s.UserID)
	}
	return ids, nil
}
