package session

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cvscreener/cvchat/internal/models"
)

// Store persists the session identity under a single fixed key. There is one
// record per device; it is read once at startup and otherwise only written by
// the Manager and by explicit reset.
type Store interface {
	Load() (models.Session, bool, error)
	Save(models.Session) error
	Clear() error
}

var (
	sessionBucket = []byte("session")
	sessionKey    = []byte("current")
)

// BoltStore implements Store on a bbolt database file. The record is
// JSON-encoded; a record that fails to decode, or whose user id is empty, is
// treated as no session rather than an error.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if necessary) the database at path and ensures
// the session bucket exists. The file is created with 0600 permissions.
func NewBoltStore(path string) (BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltStore{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})

	return BoltStore{db: db}, err
}

// Close releases the underlying database file.
func (b BoltStore) Close() error {
	return b.db.Close()
}

// Load reads the persisted session. The second return value is false when no
// usable session is stored.
func (b BoltStore) Load() (models.Session, bool, error) {
	var s models.Session
	found := false

	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(sessionBucket)
		if bkt == nil {
			return nil
		}
		v := bkt.Get(sessionKey)
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &s); err != nil {
			// Shape mismatch means no session, not a failure.
			return nil
		}
		found = s.UserID != ""
		return nil
	})
	if err != nil {
		return models.Session{}, false, err
	}
	if !found {
		return models.Session{}, false, nil
	}
	return s, true, nil
}

// Save writes the session record, replacing any previous one.
func (b BoltStore) Save(s models.Session) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(sessionBucket)
		if bkt == nil {
			return fmt.Errorf("session bucket is missing")
		}
		v, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		return bkt.Put(sessionKey, v)
	})
}

// Clear removes the session record unconditionally.
func (b BoltStore) Clear() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(sessionBucket)
		if bkt == nil {
			return nil
		}
		return bkt.Delete(sessionKey)
	})
}
