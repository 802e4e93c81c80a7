package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/cache"
	"github.com/sakif/yatube/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// countingHandler writes a body that changes on every call.
type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if h.status != 0 {
		w.WriteHeader(h.status)
	}
	fmt.Fprintf(w, "render #%d", h.calls)
}

func serve(ctx context.Context, h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCachePage_ServesRepeatedGETsFromCache(t *testing.T) {
	next := &countingHandler{}
	pc := cache.NewMemory()
	h := middleware.CachePage(pc, 20*time.Second, discard)(next)
	ctx := context.Background()

	first := serve(ctx, h, http.MethodGet, "/")
	second := serve(ctx, h, http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get(middleware.CacheHeader))
	assert.Equal(t, "HIT", second.Header().Get(middleware.CacheHeader))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, next.calls)

	require.NoError(t, pc.Clear(ctx))
	third := serve(ctx, h, http.MethodGet, "/")
	assert.Equal(t, "render #2", third.Body.String())
}

func TestCachePage_KeyIncludesQueryAndViewer(t *testing.T) {
	next := &countingHandler{}
	h := middleware.CachePage(cache.NewMemory(), time.Minute, discard)(next)
	anon := context.Background()
	alice := auth.WithUserID(context.Background(), "alice")

	serve(anon, h, http.MethodGet, "/")
	serve(anon, h, http.MethodGet, "/?page=2")
	serve(alice, h, http.MethodGet, "/")
	rr := serve(alice, h, http.MethodGet, "/")

	assert.Equal(t, 3, next.calls)
	assert.Equal(t, "render #3", rr.Body.String())
}

func TestCachePage_OnlyStoresOK(t *testing.T) {
	next := &countingHandler{status: http.StatusNotFound}
	h := middleware.CachePage(cache.NewMemory(), time.Minute, discard)(next)

	first := serve(context.Background(), h, http.MethodGet, "/")
	serve(context.Background(), h, http.MethodGet, "/")

	assert.Equal(t, http.StatusNotFound, first.Code)
	assert.Equal(t, 2, next.calls)
}

func TestCachePage_BypassesOtherMethods(t *testing.T) {
	next := &countingHandler{}
	h := middleware.CachePage(cache.NewMemory(), time.Minute, discard)(next)

	serve(context.Background(), h, http.MethodPost, "/")
	rr := serve(context.Background(), h, http.MethodPost, "/")

	assert.Equal(t, 2, next.calls)
	assert.Empty(t, rr.Header().Get(middleware.CacheHeader))
}

func TestCachePage_ZeroTTLDisablesCaching(t *testing.T) {
	next := &countingHandler{}
	h := middleware.CachePage(cache.NewMemory(), 0, discard)(next)

	serve(context.Background(), h, http.MethodGet, "/")
	serve(context.Background(), h, http.MethodGet, "/")

	assert.Equal(t, 2, next.calls)
}

// brokenCache fails every call.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) Clear(context.Context) error { return errors.New("connection refused") }

func TestCachePage_BackendErrorsServeUncached(t *testing.T) {
	next := &countingHandler{}
	h := middleware.CachePage(brokenCache{}, time.Minute, discard)(next)

	first := serve(context.Background(), h, http.MethodGet, "/")
	second := serve(context.Background(), h, http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "render #1", first.Body.String())
	assert.Equal(t, "render #2", second.Body.String())
}
