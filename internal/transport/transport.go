package transport

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/openlaunch/resource-cache/internal/version"
)

// Location is the result of resolving the best remote location for a
// requested URL and version constraint: where the artifact is actually
// served from, and what the server reports about it.
type Location struct {
	URL           *url.URL
	Version       version.ID
	ContentLength int64
	LastModified  time.Time
}

// Response is one opened connection to a remote artifact. The body must be
// closed by the caller.
type Response struct {
	URL             *url.URL
	ContentEncoding string
	ContentLength   int64
	LastModified    time.Time
	Body            io.ReadCloser
}

// Close closes the response body.
func (r *Response) Close() error {
	return r.Body.Close()
}

// Transport is the narrow contract the downloader consumes. The concrete
// connection handling (candidate URLs, timeouts, socket fallback details)
// lives behind it.
type Transport interface {
	// ResolveBestLocation determines the URL and metadata actually served
	// for a requested location and optional version range. A nil Location
	// with a nil error means the remote could not offer the resource;
	// callers fall back to the local cache.
	ResolveBestLocation(ctx context.Context, u *url.URL, v version.Range) (*Location, error)

	// Open performs a GET request with the given headers.
	Open(ctx context.Context, u *url.URL, header http.Header) (*Response, error)

	// ReadTolerant fetches a URL over a raw socket, tolerating responses
	// with invalid headers. Used exactly once per transfer, and only after
	// a malformed-response error.
	ReadTolerant(ctx context.Context, u *url.URL) (header string, body []byte, err error)
}
