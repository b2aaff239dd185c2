package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errpkg "github.com/openlaunch/resource-cache/internal/errors"
	"github.com/openlaunch/resource-cache/internal/version"
)

func testTransport() *HTTPTransport {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	return NewHTTPTransport(5*time.Second, logger)
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestResolveBestLocation(t *testing.T) {
	lastModified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "1.4+", r.URL.Query().Get(VersionQueryParam))

		w.Header().Set(VersionHeader, "1.5")
		w.Header().Set("Last-Modified", lastModified.Format(http.TimeFormat))
		w.Header().Set("Content-Length", "123")
	}))
	defer srv.Close()

	vr, err := version.ParseRange("1.4+")
	require.NoError(t, err)

	loc, err := testTransport().ResolveBestLocation(context.Background(), mustURL(t, srv.URL+"/lib.jar"), vr)
	require.NoError(t, err)

	assert.Equal(t, "1.5", loc.Version.String())
	assert.Equal(t, int64(123), loc.ContentLength)
	assert.True(t, loc.LastModified.Equal(lastModified))
}

func TestResolveBestLocation_NoVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has(VersionQueryParam))
	}))
	defer srv.Close()

	loc, err := testTransport().ResolveBestLocation(context.Background(), mustURL(t, srv.URL+"/lib.jar"), version.Range{})
	require.NoError(t, err)

	assert.True(t, loc.Version.IsZero())
	assert.True(t, loc.LastModified.IsZero())
}

func TestResolveBestLocation_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testTransport().ResolveBestLocation(context.Background(), mustURL(t, srv.URL+"/missing.jar"), version.Range{})
	assert.ErrorContains(t, err, "404")
}

func TestOpen_PassesEncodingThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pack200-gzip, gzip", r.Header.Get("Accept-Encoding"))

		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write([]byte("raw-gzip-bytes"))
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Accept-Encoding", "pack200-gzip, gzip")

	resp, err := testTransport().Open(context.Background(), mustURL(t, srv.URL+"/lib.jar"), header)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "gzip", resp.ContentEncoding)

	// Transparent decompression is off; the body is the literal payload.
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw-gzip-bytes"), body)
}

func TestOpen_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testTransport().Open(context.Background(), mustURL(t, srv.URL+"/lib.jar"), nil)
	assert.ErrorContains(t, err, "500")
}

// rawServer listens on a plain TCP socket and answers every connection with
// a fixed byte string, letting tests serve deliberately invalid HTTP.
func rawServer(t *testing.T, response string) *url.URL {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				_, _ = c.Read(buf)
				_, _ = io.WriteString(c, response)
			}(conn)
		}
	}()

	return mustURL(t, "http://"+ln.Addr().String()+"/lib.jar")
}

func TestOpen_MalformedStatusLineTagged(t *testing.T) {
	u := rawServer(t, "HTP/1.1 200 OK\r\n\r\npayload")

	_, err := testTransport().Open(context.Background(), u, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errpkg.ErrInvalidHTTPResponse)
}

func TestReadTolerant(t *testing.T) {
	u := rawServer(t, "HTTP/1.1 200 OK\r\nbad header line\r\n\r\npayload-bytes")

	header, body, err := testTransport().ReadTolerant(context.Background(), u)
	require.NoError(t, err)

	assert.Contains(t, header, "200 OK")
	assert.Contains(t, header, "bad header line")
	assert.Equal(t, []byte("payload-bytes"), body)
}

func TestSplitResponse(t *testing.T) {
	header, body := splitResponse([]byte("HTTP/1.0 200 OK\r\nX: y\r\n\r\nabc"))
	assert.Equal(t, "HTTP/1.0 200 OK\r\nX: y", header)
	assert.Equal(t, []byte("abc"), body)

	header, body = splitResponse([]byte("HTTP/1.0 200 OK\n\nabc"))
	assert.Equal(t, "HTTP/1.0 200 OK", header)
	assert.Equal(t, []byte("abc"), body)

	header, body = splitResponse([]byte("no separator at all"))
	assert.Empty(t, header)
	assert.Equal(t, []byte("no separator at all"), body)
}
