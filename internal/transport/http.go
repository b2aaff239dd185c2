package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	errpkg "github.com/openlaunch/resource-cache/internal/errors"
	"github.com/openlaunch/resource-cache/internal/version"
)

// VersionQueryParam carries the requested version range on resolve requests,
// VersionHeader carries the exact version-id the server decided to serve.
const (
	VersionQueryParam = "version-id"
	VersionHeader     = "X-Version-Id"
)

// HTTPTransport is the default Transport on net/http plus a raw TCP
// fallback for servers that emit invalid response headers.
type HTTPTransport struct {
	client *http.Client
	dialer *net.Dialer
	logger *slog.Logger
}

// NewHTTPTransport builds a transport whose requests time out after the
// given duration.
func NewHTTPTransport(timeout time.Duration, logger *slog.Logger) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
		dialer: &net.Dialer{Timeout: timeout},
		logger: logger,
	}
}

// ResolveBestLocation issues a HEAD request for the resource, carrying the
// version constraint as a query parameter. The served version, if any, is
// reported back in a response header.
func (t *HTTPTransport) ResolveBestLocation(ctx context.Context, u *url.URL, v version.Range) (*Location, error) {
	target := *u
	if !v.IsZero() {
		q := target.Query()
		q.Set(VersionQueryParam, v.String())
		target.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, wrapMalformed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	loc := &Location{
		URL:           resp.Request.URL,
		ContentLength: resp.ContentLength,
		LastModified:  parseLastModified(resp.Header),
	}
	if served := resp.Header.Get(VersionHeader); served != "" {
		id, err := version.ParseID(served)
		if err != nil {
			t.logger.Warn("server reported unparseable version id", "url", u.String(), "version", served)
		} else {
			loc.Version = id
		}
	}
	return loc, nil
}

// Open performs a GET request. Setting Accept-Encoding explicitly disables
// the client's transparent decompression, so the body arrives exactly as
// encoded and the caller selects the unpacker.
func (t *HTTPTransport) Open(ctx context.Context, u *url.URL, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, wrapMalformed(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return &Response{
		URL:             resp.Request.URL,
		ContentEncoding: resp.Header.Get("Content-Encoding"),
		ContentLength:   resp.ContentLength,
		LastModified:    parseLastModified(resp.Header),
		Body:            resp.Body,
	}, nil
}

// ReadTolerant issues a minimal HTTP/1.0 GET over a raw TCP connection and
// splits the response at the header/body boundary without validating the
// header at all.
func (t *HTTPTransport) ReadTolerant(ctx context.Context, u *url.URL) (string, []byte, error) {
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return "", nil, fmt.Errorf("failed to dial %s: %w", host, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if t.dialer.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.dialer.Timeout))
	}

	target := u.RequestURI()
	request := fmt.Sprintf("GET %s HTTP/1.0\r\nHost: %s\r\nConnection: close\r\n\r\n", target, u.Hostname())
	if _, err := io.WriteString(conn, request); err != nil {
		return "", nil, fmt.Errorf("failed to write request: %w", err)
	}

	raw, err := io.ReadAll(conn)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}

	header, body := splitResponse(raw)
	t.logger.Info("tolerant socket read", "url", u.String(), "header_bytes", len(header), "body_bytes", len(body))
	return header, body, nil
}

func splitResponse(raw []byte) (string, []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return string(raw[:i]), raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return string(raw[:i]), raw[i+2:]
	}
	return "", raw
}

// wrapMalformed tags client errors caused by invalid server responses so the
// downloader can decide to retry over the raw socket.
func wrapMalformed(err error) error {
	if strings.Contains(err.Error(), "malformed HTTP") {
		return fmt.Errorf("%w: %v", errpkg.ErrInvalidHTTPResponse, err)
	}
	return fmt.Errorf("failed to download: %w", err)
}

func parseLastModified(h http.Header) time.Time {
	raw := h.Get("Last-Modified")
	if raw == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
