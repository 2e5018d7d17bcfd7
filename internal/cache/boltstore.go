package cache

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("cache")

// BoltBackend stores entries in a single bucket of an embedded bbolt
// database. It is a drop-in alternative to FileBackend for deployments
// that prefer one database file over a directory of JSON files.
type BoltBackend struct {
	db *bolt.DB
}

// NewBoltBackend opens (or creates) the database at path and ensures the
// cache bucket exists.
func NewBoltBackend(path string) (*BoltBackend, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating cache bucket: %w", err)
	}

	return &BoltBackend{db: db}, nil
}

// Close closes the underlying database.
func (b *BoltBackend) Close() error {
	return b.db.Close()
}

// Load reads the entry for key.
func (b *BoltBackend) Load(key string) (PersistedEntry, bool, error) {
	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(boltBucket).Get([]byte(key)); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		return PersistedEntry{}, false, fmt.Errorf("reading cache entry for key %s: %w", key, err)
	}
	if raw == nil {
		return PersistedEntry{}, false, nil
	}

	var ent PersistedEntry
	if err := json.Unmarshal(raw, &ent); err != nil {
		_ = b.Delete(key)
		return PersistedEntry{}, false, nil
	}
	return ent, true, nil
}

// Store writes the entry for key.
func (b *BoltBackend) Store(key string, ent PersistedEntry) error {
	raw, err := json.Marshal(ent)
	if err != nil {
		return fmt.Errorf("marshaling cache entry for key %s: %w", key, err)
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("writing cache entry for key %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key. Deleting an absent key is not an error.
func (b *BoltBackend) Delete(key string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting cache entry for key %s: %w", key, err)
	}
	return nil
}

// DeleteAll drops and recreates the cache bucket.
func (b *BoltBackend) DeleteAll() error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(boltBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(boltBucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("clearing cache bucket: %w", err)
	}
	return nil
}
