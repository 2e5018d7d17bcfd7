package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/neexbeast/places2go/internal/dataset"
)

// PersistedEntry is the durable counterpart of an in-memory cache entry:
// the serialized table plus the metadata needed to TTL-check it on a cold
// read.
type PersistedEntry struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	WrittenAt time.Time       `json:"written_at"`
	TTL       time.Duration   `json:"ttl"`
}

// Expired reports whether the entry's TTL has lapsed at the given time.
func (e PersistedEntry) Expired(now time.Time) bool {
	return now.After(e.WrittenAt.Add(e.TTL))
}

// Backend is the durable storage under a PersistentStore. Load returns
// found=false for absent keys; it does not TTL-check, that is the store's
// job. Implementations must be safe for concurrent use.
type Backend interface {
	Load(key string) (PersistedEntry, bool, error)
	Store(key string, ent PersistedEntry) error
	Delete(key string) error
	DeleteAll() error
}

// PersistentStore is a durable table cache: an in-memory Cache for warm
// reads layered over a Backend that survives restarts. Entries whose TTL
// has lapsed are treated as absent and removed from the backend.
type PersistentStore struct {
	mem     *Cache[dataset.Table]
	backend Backend
	now     func() time.Time
}

// NewPersistentStore constructs a PersistentStore over the given backend,
// keeping up to maxEntries tables warm in memory.
func NewPersistentStore(backend Backend, maxEntries int) *PersistentStore {
	return &PersistentStore{
		mem:     New[dataset.Table](maxEntries),
		backend: backend,
		now:     time.Now,
	}
}

// Get returns the table for key and whether it was found. A memory miss
// falls through to the backend; a still-valid persisted entry is promoted
// into memory with its remaining TTL. Expired or unreadable persisted
// entries are deleted and reported as absent.
func (s *PersistentStore) Get(key string) (dataset.Table, bool) {
	if table, ok := s.mem.Get(key); ok {
		return table, true
	}

	ent, ok, err := s.backend.Load(key)
	if err != nil {
		slog.Warn("persistent cache load failed", "key", key, "err", err)
		return dataset.Table{}, false
	}
	if !ok {
		return dataset.Table{}, false
	}

	now := s.now()
	if ent.Expired(now) {
		if err := s.backend.Delete(key); err != nil {
			slog.Warn("deleting expired cache entry failed", "key", key, "err", err)
		}
		return dataset.Table{}, false
	}

	var table dataset.Table
	if err := json.Unmarshal(ent.Payload, &table); err != nil {
		slog.Warn("persistent cache entry corrupt, deleting", "key", key, "err", err)
		if err := s.backend.Delete(key); err != nil {
			slog.Warn("deleting corrupt cache entry failed", "key", key, "err", err)
		}
		return dataset.Table{}, false
	}

	remaining := ent.WrittenAt.Add(ent.TTL).Sub(now)
	s.mem.Set(key, table, remaining)
	return table, true
}

// Set writes the table to both the in-memory cache and the backend before
// returning, so the freshest value survives a crash immediately after.
func (s *PersistentStore) Set(key string, table dataset.Table, ttl time.Duration) error {
	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshaling table for key %s: %w", key, err)
	}

	ent := PersistedEntry{
		Key:       key,
		Payload:   payload,
		WrittenAt: s.now(),
		TTL:       ttl,
	}
	if err := s.backend.Store(key, ent); err != nil {
		return fmt.Errorf("persisting cache entry for key %s: %w", key, err)
	}

	s.mem.Set(key, table, ttl)
	return nil
}

// Invalidate removes the entry for key from memory and the backend.
func (s *PersistentStore) Invalidate(key string) error {
	s.mem.Delete(key)
	if err := s.backend.Delete(key); err != nil {
		return fmt.Errorf("invalidating cache entry for key %s: %w", key, err)
	}
	return nil
}

// InvalidateAll drops every entry from memory and the backend.
func (s *PersistentStore) InvalidateAll() error {
	s.mem.Clear()
	if err := s.backend.DeleteAll(); err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	return nil
}

// MemStats returns the in-memory layer's hit/miss counters.
func (s *PersistentStore) MemStats() Stats {
	return s.mem.Stats()
}

// Fingerprint derives a deterministic cache key from a logical query: the
// source name, the requested entity keys, and any extra parameters.
// Entities and parameters are sorted first, so equivalent requests hash to
// the same key regardless of argument order.
func Fingerprint(source string, entities []string, params map[string]string) string {
	sortedEntities := make([]string, len(entities))
	copy(sortedEntities, entities)
	sort.Strings(sortedEntities)

	paramKeys := make([]string, 0, len(params))
	for k := range params {
		paramKeys = append(paramKeys, k)
	}
	sort.Strings(paramKeys)

	var b strings.Builder
	b.WriteString(source)
	b.WriteByte('|')
	b.WriteString(strings.Join(sortedEntities, ","))
	b.WriteByte('|')
	for i, k := range paramKeys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return source + "_" + hex.EncodeToString(sum[:])
}
