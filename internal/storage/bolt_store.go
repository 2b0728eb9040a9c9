package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const jsonldBucket = "jsonld"

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	entryTTL        time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(jsonldBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		entryTTL:        opts.EntryTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get returns the live entry for key. Expired entries are deleted and reported as missing.
func (b *boltStore) Get(key string) (Entry, bool, error) {
	if b == nil || b.db == nil {
		return Entry{}, false, nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return Entry{}, false, err
	}

	var (
		entry Entry
		found bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(jsonldBucket))
		if bucket == nil {
			return fmt.Errorf("jsonld bucket missing")
		}

		k := []byte(key)
		value := bucket.Get(k)
		if value == nil {
			return nil
		}

		decoded, ok := decodeEntry(value)
		if !ok || !decoded.ExpiresAt.After(now) {
			return bucket.Delete(k)
		}

		entry, found = decoded, true
		return nil
	})
	return entry, found, err
}

// Put stores entry under key, stamping UpdatedAt when unset and ExpiresAt from the TTL.
func (b *boltStore) Put(key string, entry Entry) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now.UTC()
	}
	entry.ExpiresAt = now.Add(b.entryTTL).UTC()

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(jsonldBucket))
		if bucket == nil {
			return fmt.Errorf("jsonld bucket missing")
		}
		return bucket.Put([]byte(key), raw)
	})
}

// Touch pushes the expiry of an existing entry forward. Missing keys are ignored.
func (b *boltStore) Touch(key string) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := b.now()
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(jsonldBucket))
		if bucket == nil {
			return fmt.Errorf("jsonld bucket missing")
		}

		k := []byte(key)
		entry, ok := decodeEntry(bucket.Get(k))
		if !ok {
			return nil
		}
		entry.ExpiresAt = now.Add(b.entryTTL).UTC()

		raw, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode entry: %w", err)
		}
		return bucket.Put(k, raw)
	})
}

// maybeCleanupExpired removes expired entries on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(jsonldBucket))
		if bucket == nil {
			return fmt.Errorf("jsonld bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			entry, ok := decodeEntry(v)
			if !ok || !entry.ExpiresAt.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// decodeEntry decodes a stored entry; corrupt values are treated as absent.
func decodeEntry(value []byte) (Entry, bool) {
	if len(value) == 0 {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(value, &entry); err != nil {
		return Entry{}, false
	}
	if entry.ExpiresAt.IsZero() {
		return Entry{}, false
	}
	return entry, true
}
