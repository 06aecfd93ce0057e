package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/jenkins-cicd-demo/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func rateLimitConfig(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucketBlocksWhenEmpty(t *testing.T) {
	_, rdb := newRedis(t)
	e := echo.New()
	e.GET("/api/v1/hello", okHandler, NewTokenBucket(rateLimitConfig(2), rdb))

	first := get(e, "/api/v1/hello")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	second := get(e, "/api/v1/hello")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := get(e, "/api/v1/hello")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "3600", third.Header().Get("Retry-After"))
	assert.Contains(t, third.Body.String(), `"error":"too_many_requests"`)
}

func TestTokenBucketKeysPerRoute(t *testing.T) {
	mr, rdb := newRedis(t)
	e := echo.New()
	limit := NewTokenBucket(rateLimitConfig(1), rdb)
	e.GET("/api/v1/hello", okHandler, limit)
	e.GET("/api/v1/health", okHandler, limit)

	assert.Equal(t, http.StatusOK, get(e, "/api/v1/hello").Code)
	assert.Equal(t, http.StatusOK, get(e, "/api/v1/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(e, "/api/v1/hello").Code)

	assert.True(t, mr.Exists("rl:ip:192.0.2.1:route:GET /api/v1/hello"))
	assert.True(t, mr.Exists("rl:ip:192.0.2.1:route:GET /api/v1/health"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	e := echo.New()
	e.GET("/api/v1/hello", okHandler, NewTokenBucket(rateLimitConfig(1), rdb))
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(e, "/api/v1/hello").Code)
	}
}

func TestTokenBucketDisabled(t *testing.T) {
	cfg := rateLimitConfig(1)
	cfg.Enabled = false
	_, rdb := newRedis(t)

	for _, mw := range []echo.MiddlewareFunc{NewTokenBucket(cfg, rdb), NewTokenBucket(rateLimitConfig(1), nil)} {
		e := echo.New()
		e.GET("/api/v1/hello", okHandler, mw)
		for i := 0; i < 3; i++ {
			rec := get(e, "/api/v1/hello")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		}
	}
}

func TestBuildRateKey(t *testing.T) {
	tests := []struct {
		strategy string
		expected string
	}{
		{"ip", "rl:ip:192.0.2.1"},
		{"route", "rl:route:GET /api/v1/greet"},
		{"ip_route", "rl:ip:192.0.2.1:route:GET /api/v1/greet"},
		{"", "rl:ip:192.0.2.1:route:GET /api/v1/greet"},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/greet?name=x", nil), httptest.NewRecorder())
			c.SetPath("/api/v1/greet")
			cfg := rateLimitConfig(1)
			cfg.KeyStrategy = tt.strategy
			assert.Equal(t, tt.expected, buildRateKey(cfg, c))
		})
	}
}

func serveMethod(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
