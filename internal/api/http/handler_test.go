package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	errpkg "github.com/openlaunch/resource-cache/internal/errors"
	"github.com/openlaunch/resource-cache/internal/service"
)

type mockResourceService struct {
	known uuid.UUID
}

func (m *mockResourceService) Ensure(ctx context.Context, req *service.EnsureRequest) (*service.View, error) {
	if req.Version == "1.0&&" {
		return nil, errpkg.ErrFormat
	}
	return &service.View{
		ID:      uuid.New(),
		URL:     req.URL,
		Version: req.Version,
		Status:  []string{"PreConnect"},
		Size:    -1,
	}, nil
}

func (m *mockResourceService) Get(ctx context.Context, id uuid.UUID) (*service.View, error) {
	if id != m.known {
		return nil, nil
	}
	return &service.View{
		ID:       id,
		URL:      "http://example.com/lib.jar",
		Status:   []string{"Downloaded"},
		Complete: true,
		Size:     42,
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
}

func TestResourceHandler_EnsureResource(t *testing.T) {
	handler := NewResourceHandler(&mockResourceService{}, testLogger())

	body, _ := json.Marshal(service.EnsureRequest{URL: "http://example.com/lib.jar", Version: "1.4+"})
	req := httptest.NewRequest(http.MethodPost, "/resources", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.EnsureResource(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var data map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&data)
	assert.Contains(t, data, "resource_id")
}

func TestResourceHandler_EnsureResource_InvalidBody(t *testing.T) {
	handler := NewResourceHandler(&mockResourceService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/resources", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()

	handler.EnsureResource(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestResourceHandler_EnsureResource_MissingURL(t *testing.T) {
	handler := NewResourceHandler(&mockResourceService{}, testLogger())

	body, _ := json.Marshal(service.EnsureRequest{Version: "1.4"})
	req := httptest.NewRequest(http.MethodPost, "/resources", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.EnsureResource(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestResourceHandler_EnsureResource_BadVersionRange(t *testing.T) {
	handler := NewResourceHandler(&mockResourceService{}, testLogger())

	body, _ := json.Marshal(service.EnsureRequest{URL: "http://example.com/lib.jar", Version: "1.0&&"})
	req := httptest.NewRequest(http.MethodPost, "/resources", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.EnsureResource(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestResourceHandler_GetResource(t *testing.T) {
	id := uuid.New()
	handler := NewResourceHandler(&mockResourceService{known: id}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/resources/"+id.String(), nil)

	r := chi.NewRouter()
	r.Get("/resources/{resourceID}", handler.GetResource)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var data service.View
	_ = json.NewDecoder(resp.Body).Decode(&data)
	assert.Equal(t, id, data.ID)
	assert.True(t, data.Complete)
}

func TestResourceHandler_GetResource_NotFound(t *testing.T) {
	handler := NewResourceHandler(&mockResourceService{known: uuid.New()}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/resources/"+uuid.NewString(), nil)

	r := chi.NewRouter()
	r.Get("/resources/{resourceID}", handler.GetResource)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestResourceHandler_GetResource_BadID(t *testing.T) {
	handler := NewResourceHandler(&mockResourceService{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/resources/not-a-uuid", nil)

	r := chi.NewRouter()
	r.Get("/resources/{resourceID}", handler.GetResource)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}
