package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend stores one JSON file per key under a single directory.
type FileBackend struct {
	dir string
}

// NewFileBackend constructs a FileBackend rooted at dir, creating the
// directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

// path maps a key to a filename. Keys that are not filesystem-safe or are
// too long are replaced by their hash.
func (b *FileBackend) path(key string) string {
	safe := len(key) <= 200
	for _, r := range key {
		if !isSafeFilenameRune(r) {
			safe = false
			break
		}
	}
	if !safe {
		sum := sha256.Sum256([]byte(key))
		key = hex.EncodeToString(sum[:])
	}
	return filepath.Join(b.dir, key+".json")
}

func isSafeFilenameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.':
		return true
	}
	return false
}

// Load reads the entry for key. A missing file means not found; an
// unreadable file is removed and reported as not found rather than
// poisoning every subsequent read.
func (b *FileBackend) Load(key string) (PersistedEntry, bool, error) {
	raw, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return PersistedEntry{}, false, nil
		}
		return PersistedEntry{}, false, fmt.Errorf("reading cache file for key %s: %w", key, err)
	}

	var ent PersistedEntry
	if err := json.Unmarshal(raw, &ent); err != nil {
		_ = os.Remove(b.path(key))
		return PersistedEntry{}, false, nil
	}
	return ent, true, nil
}

// Store writes the entry via a temp file and rename so readers never see a
// partially written entry.
func (b *FileBackend) Store(key string, ent PersistedEntry) error {
	raw, err := json.Marshal(ent)
	if err != nil {
		return fmt.Errorf("marshaling cache entry for key %s: %w", key, err)
	}

	path := b.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing cache file for key %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming cache file for key %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key. Deleting an absent key is not an error.
func (b *FileBackend) Delete(key string) error {
	if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting cache file for key %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes every cache file in the directory.
func (b *FileBackend) DeleteAll() error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return fmt.Errorf("reading cache dir %s: %w", b.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, e.Name())); err != nil {
			return fmt.Errorf("deleting cache file %s: %w", e.Name(), err)
		}
	}
	return nil
}
