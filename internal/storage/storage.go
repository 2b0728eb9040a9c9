package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Package storage keeps the JSON-LD returned for each page together with its ETag.

// Entry is the cached result for one normalized URL.
type Entry struct {
	ETag      string          `json:"etag"`
	JSONLD    json.RawMessage `json:"jsonld,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Store persists JSON-LD entries keyed by normalized URL.
type Store interface {
	Close() error
	Get(key string) (Entry, bool, error)
	Put(key string, entry Entry) error
	// Touch extends the lifetime of an existing entry without changing its content.
	Touch(key string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

// Storage backends accepted by NewStore.
const (
	TypeNone  = "none"
	TypeBBolt = "bbolt"
)

const (
	defaultEntryTTL        = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", TypeNone, "disabled":
		return noopStore{}, nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                    { return nil }
func (noopStore) Get(string) (Entry, bool, error) { return Entry{}, false, nil }
func (noopStore) Put(string, Entry) error         { return nil }
func (noopStore) Touch(string) error              { return nil }
