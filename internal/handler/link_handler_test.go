package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tmakar/linkshort/internal/errors"
	"github.com/tmakar/linkshort/internal/generator"
	"github.com/tmakar/linkshort/internal/handler"
	"github.com/tmakar/linkshort/internal/model"
	"github.com/tmakar/linkshort/internal/repository"
	"github.com/tmakar/linkshort/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestRouter wires the full stack behind the router: real service, real
// in-memory store, real generator.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := repository.NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := service.NewLinkService(store, generator.New(nil), nil, 0)
	return handler.NewLinkHandler(svc, nil).Routes()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreate_Success(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/links", model.CreateLinkRequest{
		TargetURL: "https://example.com/page",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var link model.Link
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.Len(t, link.Code, 6)
	assert.Equal(t, "https://example.com/page", link.TargetURL)
	assert.Equal(t, int64(0), link.TotalClicks)
	assert.Nil(t, link.LastClickedAt)
	assert.False(t, link.CreatedAt.IsZero())
}

func TestHandleCreate_CustomCode(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/links", model.CreateLinkRequest{
		TargetURL:  "https://example.com",
		CustomCode: "mycode1",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var link model.Link
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.Equal(t, "mycode1", link.Code)
}

func TestHandleCreate_InvalidBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/links", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_JSON", resp.Error.Code)
}

func TestHandleCreate_ValidationFailures(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		req  model.CreateLinkRequest
	}{
		{"empty url", model.CreateLinkRequest{TargetURL: ""}},
		{"bad scheme", model.CreateLinkRequest{TargetURL: "ftp://example.com"}},
		{"code too short", model.CreateLinkRequest{TargetURL: "https://example.com", CustomCode: "ab1"}},
		{"code too long", model.CreateLinkRequest{TargetURL: "https://example.com", CustomCode: "abcdefgh9"}},
		{"code bad chars", model.CreateLinkRequest{TargetURL: "https://example.com", CustomCode: "abc_123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/links", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp errors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Details)
		})
	}
}

func TestHandleCreate_DuplicateCode(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/links", model.CreateLinkRequest{
		TargetURL: "https://example.com", CustomCode: "taken11",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/links", model.CreateLinkRequest{
		TargetURL: "https://other.com", CustomCode: "taken11",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CODE_EXISTS", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "taken11")
}

func TestHandleCreate_GenerationExhausted(t *testing.T) {
	svc := new(MockLinkService)
	svc.On("Create", mock.Anything, "https://example.com", "").
		Return(nil, errors.ErrGenerationExhausted)
	router := handler.NewLinkHandler(svc, nil).Routes()

	rec := doJSON(t, router, http.MethodPost, "/links", model.CreateLinkRequest{
		TargetURL: "https://example.com",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "GENERATION_EXHAUSTED", resp.Error.Code)
	svc.AssertExpectations(t)
}

func TestHandleCreate_StorageFailure(t *testing.T) {
	svc := new(MockLinkService)
	svc.On("Create", mock.Anything, "https://example.com", "").
		Return(nil, assert.AnError)
	router := handler.NewLinkHandler(svc, nil).Routes()

	rec := doJSON(t, router, http.MethodPost, "/links", model.CreateLinkRequest{
		TargetURL: "https://example.com",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	// Internal detail must not leak to the client.
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestHandleList(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/links", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String(), "empty list encodes as []")

	for _, code := range []string{"codeaa", "codebb"} {
		rec := doJSON(t, router, http.MethodPost, "/links", model.CreateLinkRequest{
			TargetURL: "https://example.com/" + code, CustomCode: code,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/links", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var links []model.Link
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &links))
	require.Len(t, links, 2)
	assert.Equal(t, "codeaa", links[0].Code)
	assert.Equal(t, "codebb", links[1].Code)
}

func TestHandleGet(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/links", model.CreateLinkRequest{
		TargetURL: "https://example.com", CustomCode: "lookme1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/links/lookme1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var link model.Link
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.Equal(t, "lookme1", link.Code)
	assert.Equal(t, int64(0), link.TotalClicks, "stats lookup must not count as a click")
}

func TestHandleGet_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/links/nosuch1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "LINK_NOT_FOUND", resp.Error.Code)
}

func TestHandleDelete(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/links", model.CreateLinkRequest{
		TargetURL: "https://example.com", CustomCode: "byebye1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/links/byebye1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.DeleteLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "byebye1", resp.Code)
	assert.NotEmpty(t, resp.Message)

	rec = doJSON(t, router, http.MethodDelete, "/links/byebye1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRedirect(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/links", model.CreateLinkRequest{
		TargetURL: "https://example.com/landing", CustomCode: "jump123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/jump123", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/landing", rec.Header().Get("Location"))

	// The redirect counted as a click.
	rec = doJSON(t, router, http.MethodGet, "/links/jump123", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var link model.Link
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.Equal(t, int64(1), link.TotalClicks)
	require.NotNil(t, link.LastClickedAt)
	assert.WithinDuration(t, time.Now(), *link.LastClickedAt, time.Minute)
}

func TestHandleRedirect_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/nosuch1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "LINK_NOT_FOUND", resp.Error.Code)
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "1.0", resp.Version)
}

// MockLinkService implements handler.LinkService for failure paths the real
// stack cannot produce on demand.
type MockLinkService struct {
	mock.Mock
}

func (m *MockLinkService) Create(ctx context.Context, targetURL, customCode string) (*model.Link, error) {
	args := m.Called(ctx, targetURL, customCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Link), args.Error(1)
}

func (m *MockLinkService) Resolve(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *MockLinkService) Get(ctx context.Context, code string) (*model.Link, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Link), args.Error(1)
}

func (m *MockLinkService) List(ctx context.Context) ([]model.Link, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Link), args.Error(1)
}

func (m *MockLinkService) Delete(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}
