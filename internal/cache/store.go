// Package cache stores HTTP GET results on disk, one JSON file per request URL.
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
	"time"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// DefaultDir is used when no directory is configured.
const DefaultDir = ".legiurls-cache"

// Store is a content-addressed cache directory.
// Writes are atomic renames; concurrent writers of one key race and the last one wins.
type Store struct {
	dir        string
	version    int
	migrations map[int]MigrateFunc
}

// Option configures a Store.
type Option func(*Store)

// WithVersion overrides the format tag entries are written and validated with.
func WithVersion(v int) Option {
	return func(s *Store) { s.version = v }
}

// WithMigration registers fn to upgrade entries tagged from to from+1.
func WithMigration(from int, fn MigrateFunc) Option {
	return func(s *Store) { s.migrations[from] = fn }
}

// New returns a Store rooted at dir. Nothing is created until the first Store call.
func New(dir string, opts ...Option) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	s := &Store{
		dir:        filepath.Clean(dir),
		version:    CurrentVersion,
		migrations: make(map[int]MigrateFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// Version returns the format tag in use.
func (s *Store) Version() int { return s.version }

// Key is the hex SHA-224 digest of the exact URL string.
func Key(url string) string {
	sum := sha256.Sum224([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (s *Store) path(url string) string {
	return filepath.Join(s.dir, Key(url)+".json")
}

// Lookup returns the entry cached for url. Missing, unreadable, corrupt and
// stale entries all report false.
func (s *Store) Lookup(url string) (*Entry, bool) {
	//nolint:gosec // path is the cache dir joined with a hex digest
	data, err := os.ReadFile(s.path(url))
	if err != nil {
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if !s.upgrade(&e) {
		return nil, false
	}
	return &e, true
}

func (s *Store) upgrade(e *Entry) bool {
	for e.Version != s.version {
		if e.Version > s.version {
			return false
		}
		fn, ok := s.migrations[e.Version]
		if !ok {
			return false
		}
		if err := fn(e); err != nil {
			return false
		}
		e.Version++
	}
	return true
}

// Store persists e under url, replacing any previous entry.
func (s *Store) Store(url string, e Entry) error {
	e.Version = s.version
	e.RequestURL = url
	if e.FetchedAt.IsZero() {
		e.FetchedAt = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return atomicWriteFile(s.path(url), data)
}

// Clear deletes the whole cache directory.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func atomicWriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod cache entry: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename cache entry: %w", err)
	}
	return nil
}
