package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"

	"github.com/openlaunch/resource-cache/internal/version"
)

// EntryKey identifies one cached artifact. An artifact downloaded without a
// version is located by URL alone; a version-based download is keyed by the
// URL and the exact version-id served for it.
type EntryKey struct {
	location string
	version  version.ID
}

// NewKey builds the key for the given location and optional (zero) version.
func NewKey(location *url.URL, v version.ID) EntryKey {
	return EntryKey{location: location.String(), version: v}
}

// Location returns the remote resource location.
func (k EntryKey) Location() string {
	return k.location
}

// Version returns the version-id of the entry, zero when none.
func (k EntryKey) Version() version.ID {
	return k.version
}

// Equal reports whether both keys name the same artifact: same URL and same
// version, where two absent versions are equal.
func (k EntryKey) Equal(other EntryKey) bool {
	return k.location == other.location && k.version.String() == other.version.String()
}

func (k EntryKey) String() string {
	if k.version.IsZero() {
		return k.location
	}
	return k.location + " - " + k.version.String()
}

func (k EntryKey) digest() string {
	h := sha256.Sum256([]byte(k.location + "\n" + k.version.String()))
	return hex.EncodeToString(h[:])
}

// LockName derives the machine-mutex name for this key. Mutex names must be
// short and alphanumeric, so the key is hashed.
func (k EntryKey) LockName() string {
	return "rc-" + k.digest()[:32]
}
