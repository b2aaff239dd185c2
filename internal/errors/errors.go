package errors

import "errors"

var (
	// ErrFormat reports a version string or version range that does not
	// match the grammar. Parsing never partially accepts input.
	ErrFormat = errors.New("malformed version string")

	// ErrNotTracked reports an attempt to wait on a resource that was
	// never handed to the downloader. This is a caller bug, not a
	// runtime condition.
	ErrNotTracked = errors.New("resource is not being tracked")

	// ErrInvalidHTTPResponse marks a transport failure caused by a
	// malformed server response. It triggers exactly one raw-socket
	// retry before the failure is surfaced.
	ErrInvalidHTTPResponse = errors.New("invalid http response")

	// ErrEntryRetired reports a write attempt against a cache entry that
	// has been marked for delete.
	ErrEntryRetired = errors.New("cache entry is marked for delete")

	ErrNotCached = errors.New("resource is not present in the cache")
	ErrTimeout   = errors.New("timed out waiting for resources")
)
