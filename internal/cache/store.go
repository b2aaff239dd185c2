package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/mutex/v2"

	errpkg "github.com/openlaunch/resource-cache/internal/errors"
)

const infoFileName = "entry.json"

// Store manages the on-disk cache directory: one subdirectory per entry key
// holding the artifact file and its metadata record. The directory is shared
// across launcher instances; mutual exclusion is per key via a machine-wide
// named mutex, so processes fetching different keys never block each other.
type Store struct {
	dir       string
	clock     clock.Clock
	lockDelay time.Duration
	logger    *slog.Logger
}

// NewStore creates the cache directory if needed.
func NewStore(dir string, clk clock.Clock, lockDelay time.Duration, logger *slog.Logger) (*Store, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &Store{dir: dir, clock: clk, lockDelay: lockDelay, logger: logger}, nil
}

// Dir returns the root cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Now returns the store's notion of the current time, used for the
// last-updated metadata field.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// Lock acquires the exclusive lock for one entry key. The lock is held
// machine-wide, so two launcher processes fetching the same key serialize.
// Callers must release it on every exit path.
func (s *Store) Lock(key EntryKey) (mutex.Releaser, error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:  key.LockName(),
		Clock: s.clock,
		Delay: s.lockDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to lock cache entry %s: %w", key, err)
	}
	return releaser, nil
}

func (s *Store) entryDir(key EntryKey) string {
	return filepath.Join(s.dir, key.digest()[:16])
}

func (s *Store) infoPath(key EntryKey) string {
	return filepath.Join(s.entryDir(key), infoFileName)
}

// FileFor returns the default artifact path for a key.
func (s *Store) FileFor(key EntryKey) string {
	return filepath.Join(s.entryDir(key), artifactName(key))
}

func artifactName(key EntryKey) string {
	u, err := url.Parse(key.Location())
	name := ""
	if err == nil {
		name = path.Base(u.Path)
	}
	name = strings.Trim(name, "./")
	if name == "" {
		name = "resource.bin"
	}
	return name
}

// Open loads the persisted record for a key. A missing record yields an
// uncached entry bound to the default artifact path. An unreadable or
// corrupted record degrades the same way so that metadata corruption never
// aborts a resource fetch; the damage is logged.
//
// A record whose artifact file is missing is equally not cached: the record
// is persisted during the connect phase, before any bytes arrive, so an
// interrupted transfer leaves exactly this state behind and the entry must
// not pass for current on the next pass.
func (s *Store) Open(key EntryKey) *Entry {
	entry := &Entry{
		key:      key,
		infoPath: s.infoPath(key),
		meta:     metadata{LocalPath: s.FileFor(key)},
	}

	data, err := os.ReadFile(entry.infoPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache entry metadata unreadable, treating as not cached", "key", key.String(), "error", err)
		}
		return entry
	}

	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		s.logger.Warn("cache entry metadata corrupted, treating as not cached", "key", key.String(), "error", err)
		return entry
	}

	if meta.LocalPath == "" {
		meta.LocalPath = s.FileFor(key)
	}
	if _, err := os.Stat(meta.LocalPath); err != nil {
		s.logger.Warn("cache entry artifact missing, treating as not cached", "key", key.String(), "local_path", meta.LocalPath)
		entry.meta = metadata{LocalPath: meta.LocalPath}
		return entry
	}

	entry.cached = true
	entry.meta = meta
	return entry
}

// Fresh allocates a new entry for a key under a new physical file. Used
// after retiring a stale entry so that readers of the old artifact never
// observe a half-replaced file.
func (s *Store) Fresh(key EntryKey) *Entry {
	name := uuid.NewString()[:8] + "-" + artifactName(key)
	return &Entry{
		key:      key,
		infoPath: s.infoPath(key),
		meta:     metadata{LocalPath: filepath.Join(s.entryDir(key), name)},
	}
}

// Put persists the entry's record atomically: the document is written to a
// temporary file and renamed over the old one, so concurrent readers under
// the same key's lock see either the old or the new record, never a partial
// one.
func (s *Store) Put(e *Entry) error {
	if err := os.MkdirAll(filepath.Dir(e.infoPath), 0o755); err != nil {
		return fmt.Errorf("failed to create cache entry directory: %w", err)
	}

	data, err := json.MarshalIndent(e.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s: %w", e.key, err)
	}

	tempFile := e.infoPath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary metadata file: %w", err)
	}
	if err := os.Rename(tempFile, e.infoPath); err != nil {
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}

	e.cached = true
	s.logger.Debug("cache entry stored", "key", e.key.String(), "local_path", e.meta.LocalPath, "retired", e.meta.MarkedForDelete)
	return nil
}

// Create opens the entry's artifact file for writing. Writing through a
// retired entry is refused; a fresh entry must be allocated instead.
func (s *Store) Create(e *Entry) (*os.File, error) {
	if e.IsRetired() {
		return nil, fmt.Errorf("%w: %s", errpkg.ErrEntryRetired, e.key)
	}
	if err := os.MkdirAll(filepath.Dir(e.meta.LocalPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache entry directory: %w", err)
	}
	return os.Create(e.meta.LocalPath)
}
