package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openlaunch/resource-cache/internal/downloader"
	"github.com/openlaunch/resource-cache/internal/resource"
	"github.com/openlaunch/resource-cache/internal/validation"
	"github.com/openlaunch/resource-cache/internal/version"
)

// EnsureRequest is the request body for making a resource available.
type EnsureRequest struct {
	URL     string `json:"url" validate:"required,url"`
	Version string `json:"version,omitempty"`
}

// View is the externally visible state of one tracked resource.
type View struct {
	ID          uuid.UUID `json:"resource_id"`
	URL         string    `json:"url"`
	Version     string    `json:"version,omitempty"`
	Status      []string  `json:"status"`
	Complete    bool      `json:"complete"`
	Failed      bool      `json:"failed"`
	Size        int64     `json:"size"`
	Transferred int64     `json:"transferred"`
	LocalPath   string    `json:"local_path,omitempty"`
}

// ResourceService tracks resources by id and feeds them to the downloader.
// Repeated ensure requests for the same URL and version constraint map to
// the same resource; the downloader makes the second submission a no-op.
type ResourceService struct {
	downloader *downloader.Downloader
	logger     *slog.Logger

	mu        sync.RWMutex
	resources map[uuid.UUID]*resource.Resource
	ids       map[string]uuid.UUID
}

// NewResourceService creates a service over the given downloader.
func NewResourceService(d *downloader.Downloader, logger *slog.Logger) *ResourceService {
	return &ResourceService{
		downloader: d,
		logger:     logger,
		resources:  make(map[uuid.UUID]*resource.Resource),
		ids:        make(map[string]uuid.UUID),
	}
}

// Ensure validates the request, registers (or finds) the resource and
// requests that it be made available. It returns immediately with the
// resource's current state.
func (s *ResourceService) Ensure(ctx context.Context, req *EnsureRequest) (*View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validation.ValidateURL(req.URL); err != nil {
		return nil, err
	}

	var vr version.Range
	if req.Version != "" {
		parsed, err := version.ParseRange(req.Version)
		if err != nil {
			return nil, err
		}
		vr = parsed
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid resource URL %q: %w", req.URL, err)
	}

	dedupeKey := req.URL + "\n" + vr.String()

	s.mu.Lock()
	id, known := s.ids[dedupeKey]
	var r *resource.Resource
	if known {
		r = s.resources[id]
	} else {
		id = uuid.New()
		r = resource.New(u, vr)
		s.ids[dedupeKey] = id
		s.resources[id] = r
	}
	s.mu.Unlock()

	s.downloader.Ensure(r)
	if !known {
		s.logger.Info("resource tracked", "resource_id", id, "url", req.URL, "version", vr.String())
	}
	return s.view(id, r), nil
}

// Get returns the state of a tracked resource, nil when the id is unknown.
func (s *ResourceService) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	r, ok := s.resources[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.view(id, r), nil
}

// Await blocks until the resource is terminal or the timeout elapses, then
// returns its state.
func (s *ResourceService) Await(ctx context.Context, id uuid.UUID, timeout time.Duration) (*View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	r, ok := s.resources[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if err := s.downloader.Await(timeout, r); err != nil {
		return nil, err
	}
	return s.view(id, r), nil
}

func (s *ResourceService) view(id uuid.UUID, r *resource.Resource) *View {
	status := r.Status()
	v := &View{
		ID:          id,
		URL:         r.Location().String(),
		Version:     r.RequestVersion().String(),
		Status:      status.Names(),
		Complete:    status&resource.Downloaded != 0,
		Failed:      status&resource.Error != 0,
		Size:        r.Size(),
		Transferred: r.Transferred(),
		LocalPath:   r.LocalFile(),
	}
	return v
}
