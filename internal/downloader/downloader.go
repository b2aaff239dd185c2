package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/openlaunch/resource-cache/internal/cache"
	errpkg "github.com/openlaunch/resource-cache/internal/errors"
	"github.com/openlaunch/resource-cache/internal/metrics"
	"github.com/openlaunch/resource-cache/internal/resource"
	"github.com/openlaunch/resource-cache/internal/transport"
	"github.com/openlaunch/resource-cache/internal/unpack"
)

// Policy is the caller-supplied fetch policy. The descriptor path is passed
// in explicitly rather than looked up from ambient process state.
type Policy struct {
	Offline        bool
	ForceRefresh   bool
	DescriptorPath string
	RequestTimeout time.Duration
}

// Downloader resolves, caches and fetches resources. One worker task runs
// per resource at a time; completion is signalled through a broadcast that
// waiters re-check flags after.
type Downloader struct {
	store     *cache.Store
	transport transport.Transport
	pool      Pool
	policy    Policy
	pack200   unpack.Transform
	logger    *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	tracked map[*resource.Resource]struct{}
}

// New wires a downloader from its collaborators.
func New(store *cache.Store, tr transport.Transport, pool Pool, policy Policy, logger *slog.Logger) *Downloader {
	d := &Downloader{
		store:     store,
		transport: tr,
		pool:      pool,
		policy:    policy,
		logger:    logger,
		tracked:   make(map[*resource.Resource]struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// SetPack200Decoder installs the pack200 stage of the pack200+gzip
// strategy. Without one the gzip layer is still removed.
func (d *Downloader) SetPack200Decoder(decode unpack.Transform) {
	d.pack200 = decode
}

// Ensure requests that a resource be made available. It is idempotent and
// never blocks on the work itself: if the resource is complete nothing
// happens, and if a worker task is already in flight no second task is
// submitted.
func (d *Downloader) Ensure(r *resource.Resource) {
	d.mu.Lock()
	d.tracked[r] = struct{}{}
	d.mu.Unlock()

	if r.ScheduleWork() {
		d.pool.Submit(func() { d.process(r) })
	}
}

// Await blocks until every given resource reaches a terminal flag
// (downloaded or error) or the timeout elapses. A non-positive timeout
// waits without limit. The wait is level-triggered: a waiter arriving after
// completion observes the already-set flags and returns immediately.
// Waiting on a resource never handed to Ensure is a caller bug and fails
// with ErrNotTracked; the caller inspects the resources' flags to learn the
// outcome.
func (d *Downloader) Await(timeout time.Duration, resources ...*resource.Resource) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range resources {
		if _, ok := d.tracked[r]; !ok {
			return fmt.Errorf("%w: %s", errpkg.ErrNotTracked, r.Location())
		}
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		timer := time.AfterFunc(timeout, func() {
			d.mu.Lock()
			d.cond.Broadcast()
			d.mu.Unlock()
		})
		defer timer.Stop()
	}

	for {
		if allTerminal(resources) {
			return nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %s", errpkg.ErrTimeout, timeout)
		}
		d.cond.Wait()
	}
}

func allTerminal(resources []*resource.Resource) bool {
	for _, r := range resources {
		if !r.IsTerminal() {
			return false
		}
	}
	return true
}

// process is the worker task: connect phase, then download phase. Failures
// never escape to the pool; they become the resource's Error flag. The
// completion broadcast runs on every exit path so waiters cannot hang.
func (d *Downloader) process(r *resource.Resource) {
	defer func() {
		d.mu.Lock()
		d.cond.Broadcast()
		d.mu.Unlock()
	}()

	if r.StartConnect() {
		d.connect(r)
	}
	if r.StartDownload() {
		d.download(r)
	}
}

func (d *Downloader) connect(r *resource.Resource) {
	if err := d.initialize(r); err != nil {
		d.logger.Error("error while initializing resource", "url", r.Location().String(), "error", err)
		r.ChangeStatus(0, resource.Error)
	}
}

func (d *Downloader) initialize(r *resource.Resource) error {
	ctx, cancel := d.phaseContext()
	defer cancel()

	if !d.policy.Offline && r.IsConnectable() {
		loc, err := d.transport.ResolveBestLocation(ctx, r.Location(), r.RequestVersion())
		if err != nil {
			d.logger.Warn("failed to resolve remote location, falling back to cache", "url", r.Location().String(), "error", err)
		} else if loc != nil {
			return d.initializeFromLocation(r, loc)
		}
	}
	return d.initializeFromCache(r)
}

func (d *Downloader) initializeFromLocation(r *resource.Resource, loc *transport.Location) error {
	r.SetDownloadLocation(loc.URL)
	switch {
	case !loc.Version.IsZero():
		r.SetDownloadVersion(loc.Version)
	default:
		// The server did not report a served version; an exact request
		// pins the download version instead.
		if exact, ok := r.RequestVersion().ExactID(); ok {
			r.SetDownloadVersion(exact)
		}
	}

	key := d.entryKey(r)
	releaser, err := d.store.Lock(key)
	if err != nil {
		return err
	}
	defer releaser.Release()

	entry := d.store.Open(key)
	current := entry.IsCurrent(loc.LastModified, d.policy.ForceRefresh)

	if !current && entry.IsCached() {
		// Retire the stale entry and continue under a fresh physical
		// file. The old artifact stays on disk until cleanup, so readers
		// never observe a half-replaced file.
		entry.MarkForDelete()
		if err := d.store.Put(entry); err != nil {
			return err
		}
		metrics.EntriesRetired.Inc()
		entry = d.store.Fresh(key)
	}
	if current {
		metrics.CacheHits.Inc()
	}

	r.FinishConnect(entry.LocalPath(), loc.ContentLength, current)

	if !current {
		entry.SetContentLength(loc.ContentLength)
		entry.SetLastModified(loc.LastModified)
	}
	entry.SetLastUpdated(d.store.Now())
	if d.policy.DescriptorPath != "" {
		entry.SetDescriptorPath(d.policy.DescriptorPath)
	} else {
		d.logger.Debug("no descriptor path provided, not recording one", "url", r.Location().String())
	}
	return d.store.Put(entry)
}

func (d *Downloader) initializeFromCache(r *resource.Resource) error {
	key := d.entryKey(r)
	releaser, err := d.store.Lock(key)
	if err != nil {
		return err
	}
	defer releaser.Release()

	entry := d.store.Open(key)
	info, err := os.Stat(entry.LocalPath())
	if err != nil || entry.IsRetired() {
		d.logger.Warn("resource is not in cache and could not be downloaded", "url", r.Location().String())
		return fmt.Errorf("%w: %s", errpkg.ErrNotCached, r.Location())
	}

	r.FinishFromCache(entry.LocalPath(), info.Size())
	metrics.CacheHits.Inc()
	return nil
}

func (d *Downloader) download(r *resource.Resource) {
	start := time.Now()
	metrics.DownloadsTotal.Inc()

	if err := d.transfer(r); err != nil {
		d.logger.Error("error while downloading resource", "url", r.Location().String(), "error", err)
		r.ChangeStatus(0, resource.Error)
		metrics.DownloadsFailed.Inc()
		return
	}

	r.ChangeStatus(resource.Downloading, resource.Downloaded)
	metrics.DownloadsSuccess.Inc()
	metrics.DownloadDuration.Observe(time.Since(start).Seconds())
}

func (d *Downloader) transfer(r *resource.Resource) error {
	ctx, cancel := d.phaseContext()
	defer cancel()

	from := r.DownloadLocation()
	header := http.Header{}
	header.Set("Accept-Encoding", unpack.AcceptEncoding)

	tolerant := false
	resp, err := d.transport.Open(ctx, from, header)
	if err != nil {
		if !errors.Is(err, errpkg.ErrInvalidHTTPResponse) {
			return err
		}
		d.logger.Error("invalid http response detected, attempting direct socket", "url", from.String(), "error", err)
		resp, err = d.openTolerant(ctx, from)
		if err != nil {
			return err
		}
		// The raw read knows the exact body length; the resolve-time
		// content length may disagree with it.
		r.SetSize(resp.ContentLength)
		tolerant = true
	}
	defer resp.Close()

	d.logger.Debug("downloading resource", "url", from.String(), "encoding", resp.ContentEncoding)
	unpacker := unpack.Select(resp.ContentEncoding, from.Path, d.pack200)

	key := d.entryKey(r)
	releaser, err := d.store.Lock(key)
	if err != nil {
		return err
	}
	defer releaser.Release()

	entry := d.store.Open(key)
	info, statErr := os.Stat(entry.LocalPath())

	if entry.IsCurrent(resp.LastModified, false) && statErr == nil {
		// The freshly opened connection reports the destination as
		// already current: reuse the cached bytes.
		r.SetTransferred(info.Size())
		metrics.CacheHits.Inc()
	} else {
		werr := d.writeStream(ctx, r, entry, resp.Body, unpacker)
		if werr != nil && errors.Is(werr, errpkg.ErrInvalidHTTPResponse) && !tolerant {
			d.logger.Error("invalid http response detected, attempting direct socket", "url", from.String(), "error", werr)
			fallback, ferr := d.openTolerant(ctx, from)
			if ferr != nil {
				return ferr
			}
			defer fallback.Close()
			r.SetSize(fallback.ContentLength)
			werr = d.writeStream(ctx, r, entry, fallback.Body, unpacker)
		}
		if werr != nil {
			return werr
		}
	}

	entry.SetContentLength(resp.ContentLength)
	entry.SetLastModified(resp.LastModified)
	entry.SetLastUpdated(d.store.Now())
	return d.store.Put(entry)
}

// openTolerant performs the one raw-socket retry allowed per transfer.
func (d *Downloader) openTolerant(ctx context.Context, from *url.URL) (*transport.Response, error) {
	headerText, body, err := d.transport.ReadTolerant(ctx, from)
	if err != nil {
		return nil, err
	}
	d.logger.Info("direct socket response", "url", from.String(), "header_bytes", len(headerText), "body_bytes", len(body))
	return &transport.Response{
		URL:           from,
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(bytes.NewReader(body)),
	}, nil
}

func (d *Downloader) writeStream(ctx context.Context, r *resource.Resource, entry *cache.Entry, src io.Reader, unpacker unpack.Unpacker) error {
	unpacked, err := unpacker.Unpack(src)
	if err != nil {
		return fmt.Errorf("failed to unpack stream: %w", err)
	}
	defer unpacked.Close()

	out, err := d.store.Create(entry)
	if err != nil {
		return err
	}
	defer out.Close()

	r.SetTransferred(0)
	n, err := copyWithContext(ctx, out, unpacked, r)
	if err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	metrics.DownloadBytes.Add(float64(n))
	return nil
}

// copyWithContext streams src to dst, accounting progress on the resource
// and aborting when the context is cancelled.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader, r *resource.Resource) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
			nr, err := src.Read(buf)
			if nr > 0 {
				nw, werr := dst.Write(buf[:nr])
				if nw > 0 {
					total += int64(nw)
					r.AddTransferred(int64(nw))
				}
				if werr != nil {
					return total, werr
				}
				if nr != nw {
					return total, io.ErrShortWrite
				}
			}
			if err != nil {
				if err == io.EOF {
					return total, nil
				}
				return total, err
			}
		}
	}
}

// entryKey computes the cache identity of a resource: its location plus the
// version actually served when one is known, the exact requested version
// otherwise, or no version at all.
func (d *Downloader) entryKey(r *resource.Resource) cache.EntryKey {
	id := r.DownloadVersion()
	if id.IsZero() {
		if exact, ok := r.RequestVersion().ExactID(); ok {
			id = exact
		}
	}
	return cache.NewKey(r.Location(), id)
}

func (d *Downloader) phaseContext() (context.Context, context.CancelFunc) {
	if d.policy.RequestTimeout > 0 {
		return context.WithTimeout(context.Background(), d.policy.RequestTimeout)
	}
	return context.WithCancel(context.Background())
}
