package resource

import (
	"net/url"
	"sync"

	"github.com/openlaunch/resource-cache/internal/version"
)

// Resource is the unit of fetch and cache work: one remote location plus an
// optional requested version range. All mutable fields are guarded by the
// resource's own mutex; status transitions are linearizable per resource.
type Resource struct {
	location       *url.URL
	requestVersion version.Range

	mu               sync.Mutex
	status           Status
	downloadLocation *url.URL
	downloadVersion  version.ID
	localFile        string
	size             int64
	transferred      int64
}

// New creates an untouched resource for the given location. A zero Range
// means no version constraint.
func New(location *url.URL, requestVersion version.Range) *Resource {
	return &Resource{location: location, requestVersion: requestVersion, size: -1}
}

// Location returns the requested remote location. Immutable.
func (r *Resource) Location() *url.URL {
	return r.location
}

// RequestVersion returns the requested version range. Immutable.
func (r *Resource) RequestVersion() version.Range {
	return r.requestVersion
}

// IsConnectable reports whether the location can be resolved over the
// network at all.
func (r *Resource) IsConnectable() bool {
	return r.location.Scheme == "http" || r.location.Scheme == "https"
}

// DownloadLocation returns the URL actually served for this resource, which
// may differ from the requested location after version resolution. It falls
// back to the requested location before the connect phase has resolved one.
func (r *Resource) DownloadLocation() *url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.downloadLocation == nil {
		return r.location
	}
	return r.downloadLocation
}

func (r *Resource) SetDownloadLocation(u *url.URL) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloadLocation = u
}

// DownloadVersion returns the version actually served, zero if none.
func (r *Resource) DownloadVersion() version.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.downloadVersion
}

func (r *Resource) SetDownloadVersion(id version.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloadVersion = id
}

// LocalFile returns the resolved local cache file path, empty until the
// connect phase has resolved one.
func (r *Resource) LocalFile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.localFile
}

// Size returns the expected transfer size, -1 when unknown.
func (r *Resource) Size() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// SetSize replaces the expected transfer size when a later response knows
// it better than the resolve-time content length.
func (r *Resource) SetSize(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.size = n
}

// Transferred returns the number of bytes written so far.
func (r *Resource) Transferred() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transferred
}

func (r *Resource) SetTransferred(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transferred = n
}

func (r *Resource) AddTransferred(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transferred += n
}

// Status returns a snapshot of the flag set.
func (r *Resource) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// IsSet reports whether every flag in s is set.
func (r *Resource) IsSet(s Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status&s == s
}

// IsComplete reports whether the resource has been downloaded.
func (r *Resource) IsComplete() bool {
	return r.IsSet(Downloaded)
}

// IsTerminal reports whether no further work will change the resource:
// either downloaded or failed.
func (r *Resource) IsTerminal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status&(Downloaded|Error) != 0
}

// ChangeStatus atomically clears every flag in clear, then sets every flag
// in add.
func (r *Resource) ChangeStatus(clear, add Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apply(clear, add)
}

func (r *Resource) apply(clear, add Status) {
	r.status = r.status&^clear | add
}

// ScheduleWork applies the enqueue transition: mark the connect phase
// pending unless already connecting or connected, and the download phase
// pending unless already downloading or downloaded, setting Processing in
// either case. It reports whether a new worker task must be submitted, which
// is the case only when there is pending work and no task is in flight yet.
func (r *Resource) ScheduleWork() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status&Downloaded != 0 {
		return false
	}
	wasProcessing := r.status&Processing != 0

	if r.status&(Connected|Connecting) == 0 {
		r.apply(0, PreConnect|Processing)
	}
	if r.status&(Downloaded|Downloading) == 0 {
		r.apply(0, PreDownload|Processing)
	}

	if r.status&(PreConnect|PreDownload) == 0 {
		// Nothing to do: already complete or already in flight.
		return false
	}
	return !wasProcessing
}

// StartConnect attempts to begin the connect phase. It reports false when
// the phase is not pending, already running, already done or the resource
// has failed.
func (r *Resource) StartConnect() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status&PreConnect == 0 || r.status&(Error|Connecting|Connected) != 0 {
		return false
	}
	r.apply(0, Connecting)
	return true
}

// StartDownload attempts to begin the download phase, with the same guard
// shape as StartConnect.
func (r *Resource) StartDownload() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status&PreDownload == 0 || r.status&(Error|Downloading|Downloaded) != 0 {
		return false
	}
	r.apply(0, Downloading)
	return true
}

// FinishConnect records the outcome of a successful connect phase in one
// atomic step: local file mapping, expected size, and the transition out of
// the connect flags. When the cached copy is already current the download
// phase is skipped entirely.
func (r *Resource) FinishConnect(localFile string, size int64, current bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.localFile = localFile
	r.size = size
	r.apply(PreConnect|Connecting, Connected|PreDownload)
	if current {
		r.apply(PreDownload|Downloading, Downloaded)
	}
}

// FinishFromCache records a fallback to the existing local cache file,
// marking the resource downloaded without any transfer.
func (r *Resource) FinishFromCache(localFile string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.localFile = localFile
	r.size = size
	r.apply(PreDownload|Downloading, Downloaded)
}
