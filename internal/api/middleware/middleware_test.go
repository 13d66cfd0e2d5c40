package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioscout/bioscout/internal/logger"
)

type recordedRequest struct {
	method string
	path   string
	status int
}

type fakeRecorder struct {
	mu          sync.Mutex
	requests    []recordedRequest
	rateLimited []string
}

func (f *fakeRecorder) RecordRequest(method, path string, statusCode int, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{method, path, statusCode})
}

func (f *fakeRecorder) RecordRateLimited(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateLimited = append(f.rateLimited, path)
}

func newEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(mw...)
	e.GET("/ok/:id", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/fail", func(echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "no") })
	e.POST("/upload", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	return e
}

func serve(e *echo.Echo, method, target string, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestRequestMetrics(t *testing.T) {
	t.Parallel()
	rec := &fakeRecorder{}
	e := newEcho(NewRequestMetrics(rec))

	serve(e, http.MethodGet, "/ok/42", "")
	serve(e, http.MethodGet, "/fail", "")

	require.Len(t, rec.requests, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/ok/:id", http.StatusOK}, rec.requests[0])
	assert.Equal(t, recordedRequest{http.MethodGet, "/fail", http.StatusTeapot}, rec.requests[1])
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()
	rec := &fakeRecorder{}
	e := newEcho(NewRateLimiter(1, 2, rec))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ok/1", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ok/2", "").Code)

	denied := serve(e, http.MethodGet, "/ok/3", "")
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Contains(t, denied.Body.String(), "rate limit exceeded")
	assert.Equal(t, []string{"/ok/:id"}, rec.rateLimited)
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()
	e := newEcho(NewBodyLimit(8))

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/upload", "tiny").Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(e, http.MethodPost, "/upload", "much too large").Code)
}

func TestSecureHeaders(t *testing.T) {
	t.Parallel()
	e := newEcho(NewSecureHeaders(DefaultSecurityConfig()), NewRequestLogger(logger.NewSlogLogger(nil, logger.LogLevelError)))

	rec := serve(e, http.MethodGet, "/ok/1", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}
