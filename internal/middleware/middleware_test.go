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
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/config"
	"github.com/iliyamo/clinic-treatment-board/internal/utils"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func serve(e *echo.Echo, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"subject": c.Get(CtxSubject), "role": c.Get(CtxRole)})
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth("secret"))
	tok, err := utils.NewAccessToken("secret", "Kim", utils.RoleStaff, 5)
	require.NoError(t, err)

	rec := serve(e, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + tok.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subject":"Kim","role":"STAFF"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/me?access_token="+tok.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.POST("/release", whoami, JWTAuth("secret"), RequireRole(utils.RoleDirector))
	staff, _ := utils.NewAccessToken("secret", "Kim", utils.RoleStaff, 5)
	director, _ := utils.NewAccessToken("secret", "Han", utils.RoleDirector, 5)

	rec := serve(e, http.MethodPost, "/release", map[string]string{"Authorization": "Bearer " + staff.Token})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(e, http.MethodPost, "/release", map[string]string{"Authorization": "Bearer " + director.Token})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucket(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/bays", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, zap.NewNop()))

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodPost, "/bays", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	rec := serve(e, http.MethodPost, "/bays", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestTokenBucket_PassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, nil, zap.NewNop()))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/", nil).Code)
	}
}

func TestHistoryCache_HitMissAndVersion(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache"}
	version := "v1"
	calls := 0
	e := echo.New()
	e.GET("/history", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewHistoryCache(cfg, rdb, func() string { return version }))

	first := serve(e, http.MethodGet, "/history?name=kim", nil)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := serve(e, http.MethodGet, "/history?name=kim", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	serve(e, http.MethodGet, "/history?name=park", nil)
	assert.Equal(t, 2, calls, "different query misses")

	version = "v2"
	third := serve(e, http.MethodGet, "/history?name=kim", nil)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestHistoryCache_SkipsOversizedAndErrors(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 8}
	calls := 0
	e := echo.New()
	e.GET("/big", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "0123456789abcdef")
	}, NewHistoryCache(cfg, rdb, func() string { return "v" }))
	e.GET("/bad", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "x"})
	}, NewHistoryCache(cfg, rdb, func() string { return "v" }))

	serve(e, http.MethodGet, "/big", nil)
	rec := serve(e, http.MethodGet, "/big", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "0123456789abcdef", rec.Body.String())

	serve(e, http.MethodGet, "/bad", nil)
	serve(e, http.MethodGet, "/bad", nil)
	assert.Equal(t, 4, calls)
}

func TestTokenBucket_KeysBySubject(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/bays", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		JWTAuth("secret"), NewTokenBucket(cfg, rdb, zap.NewNop()))
	kim, _ := utils.NewAccessToken("secret", "Kim", utils.RoleStaff, 5)
	lee, _ := utils.NewAccessToken("secret", "Lee", utils.RoleStaff, 5)

	// same address, different desks
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/bays", map[string]string{"Authorization": "Bearer " + kim.Token}).Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/bays", map[string]string{"Authorization": "Bearer " + lee.Token}).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/bays", map[string]string{"Authorization": "Bearer " + kim.Token}).Code)
}
