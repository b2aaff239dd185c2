package cache

import "time"

// metadata is the persisted record for one cache entry. One JSON document
// per key, written atomically next to the artifact it describes.
type metadata struct {
	LocalPath       string    `json:"local_path"`
	ContentLength   int64     `json:"content_length"`
	LastModified    time.Time `json:"last_modified"`
	LastUpdated     time.Time `json:"last_updated"`
	DescriptorPath  string    `json:"descriptor_path,omitempty"`
	MarkedForDelete bool      `json:"marked_for_delete,omitempty"`
}

// Entry is the in-memory view of one cache record. Reads and writes of the
// record for a given key must happen while holding that key's lock; the
// store only ever replaces the on-disk record atomically, so a reader under
// the lock never observes a partially written document.
type Entry struct {
	key      EntryKey
	infoPath string
	cached   bool
	meta     metadata
}

// Key returns the identity of this entry.
func (e *Entry) Key() EntryKey {
	return e.key
}

// IsCached reports whether a persisted record exists for this key.
func (e *Entry) IsCached() bool {
	return e.cached
}

// IsRetired reports whether the entry has been marked for delete. A retired
// entry is logically gone: its artifact file stays on disk until a separate
// cleanup pass, and a new download for the same key must go to a fresh
// physical file.
func (e *Entry) IsRetired() bool {
	return e.cached && e.meta.MarkedForDelete
}

// IsCurrent reports whether the cached copy is still up to date against the
// remote's reported last-modified timestamp. A forced refresh makes every
// entry stale regardless of timestamps.
func (e *Entry) IsCurrent(remoteLastModified time.Time, forceRefresh bool) bool {
	if !e.cached || e.meta.MarkedForDelete || forceRefresh {
		return false
	}
	return !e.meta.LastModified.Before(remoteLastModified)
}

// MarkForDelete retires the entry. The change is persisted by the next Put.
func (e *Entry) MarkForDelete() {
	e.meta.MarkedForDelete = true
}

// LocalPath returns the physical artifact file this entry describes.
func (e *Entry) LocalPath() string {
	return e.meta.LocalPath
}

func (e *Entry) ContentLength() int64 {
	return e.meta.ContentLength
}

func (e *Entry) SetContentLength(n int64) {
	e.meta.ContentLength = n
}

func (e *Entry) LastModified() time.Time {
	return e.meta.LastModified
}

func (e *Entry) SetLastModified(t time.Time) {
	e.meta.LastModified = t
}

func (e *Entry) LastUpdated() time.Time {
	return e.meta.LastUpdated
}

func (e *Entry) SetLastUpdated(t time.Time) {
	e.meta.LastUpdated = t
}

func (e *Entry) DescriptorPath() string {
	return e.meta.DescriptorPath
}

// SetDescriptorPath records the descriptor that caused this download.
// Auxiliary metadata: best effort, never authoritative.
func (e *Entry) SetDescriptorPath(p string) {
	e.meta.DescriptorPath = p
}
