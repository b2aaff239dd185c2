package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	errpkg "github.com/openlaunch/resource-cache/internal/errors"
	"github.com/openlaunch/resource-cache/internal/service"
)

// ResourceServiceI defines the interface for resource-related business
// logic.
type ResourceServiceI interface {
	Ensure(ctx context.Context, req *service.EnsureRequest) (*service.View, error)
	Get(ctx context.Context, id uuid.UUID) (*service.View, error)
}

// ResourceHandler handles HTTP requests for resources.
type ResourceHandler struct {
	resourceService ResourceServiceI
	validator       *validator.Validate
	logger          *slog.Logger
}

// NewResourceHandler creates a new ResourceHandler with the provided
// service and logger.
func NewResourceHandler(resourceService ResourceServiceI, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		resourceService: resourceService,
		validator:       validator.New(),
		logger:          logger,
	}
}

// EnsureResource handles the HTTP POST /resources request: it registers the
// resource and kicks off the fetch without waiting for it.
func (h *ResourceHandler) EnsureResource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.EnsureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.resourceService.Ensure(ctx, &req)
	if err != nil {
		if errors.Is(err, errpkg.ErrFormat) {
			h.logger.Warn("rejected malformed version range", "version", req.Version, "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to ensure resource", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("resource ensure accepted", "resource_id", view.ID, "url", req.URL)
	writeJSON(w, http.StatusAccepted, view)
}

// GetResource handles the HTTP GET /resources/{resourceID} request to fetch
// the state of a tracked resource.
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	idStr := chi.URLParam(r, "resourceID")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid resource ID")
		return
	}

	view, err := h.resourceService.Get(ctx, id)
	if err != nil {
		h.logger.Error("failed to get resource", "resource_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if view == nil {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
