// Package unpack selects and applies the decompression strategy for a
// downloaded body before it is written to the cache file. Exactly three
// strategies exist: identity, gzip, and pack200+gzip.
package unpack

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Content encodings negotiated with the server.
const (
	EncodingGzip     = "gzip"
	EncodingPackGzip = "pack200-gzip"

	// AcceptEncoding is the value sent on download requests.
	AcceptEncoding = EncodingPackGzip + ", " + EncodingGzip

	packGzipSuffix = ".pack.gz"
)

// Unpacker turns the encoded body stream into the decoded artifact stream.
type Unpacker interface {
	Unpack(io.Reader) (io.ReadCloser, error)
}

// Transform is a pluggable stream decoder. The pack200 stage of the
// pack200+gzip strategy is supplied by the caller, since the codec is an
// external collaborator.
type Transform func(io.Reader) (io.ReadCloser, error)

// None passes the stream through unchanged.
type None struct{}

func (None) Unpack(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// Gzip decompresses a gzip stream.
type Gzip struct{}

func (Gzip) Unpack(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr, nil
}

// PackGzip decompresses the gzip layer and then applies the pack200 decoder.
// A nil decoder leaves the pack200 layer in place.
type PackGzip struct {
	Decode Transform
}

func (p PackGzip) Unpack(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	if p.Decode == nil {
		return zr, nil
	}
	decoded, err := p.Decode(zr)
	if err != nil {
		zr.Close()
		return nil, err
	}
	return &chainedCloser{ReadCloser: decoded, inner: zr}, nil
}

type chainedCloser struct {
	io.ReadCloser
	inner io.Closer
}

func (c *chainedCloser) Close() error {
	err := c.ReadCloser.Close()
	if ierr := c.inner.Close(); err == nil {
		err = ierr
	}
	return err
}

// Select picks the strategy for a download from the declared content
// encoding and the URL path.
//
// pack200+gzip is checked before gzip on purpose: a doubly-encoded stream's
// reported encoding can alias gzip, and a pack200 stream misidentified as
// gzip would be written out still pack200-encoded and be an unusable
// archive.
func Select(contentEncoding, urlPath string, pack200 Transform) Unpacker {
	packgz := contentEncoding == EncodingPackGzip || strings.HasSuffix(urlPath, packGzipSuffix)
	if packgz {
		return PackGzip{Decode: pack200}
	}
	if contentEncoding == EncodingGzip {
		return Gzip{}
	}
	return None{}
}
