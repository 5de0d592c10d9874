package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/config"
)

// bucketScript refills whole intervals, then takes one token.
// Returns {allowed, tokens_left, wait_ms}.
var bucketScript = redis.NewScript(`
local cap, step, every, now, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local t = redis.call('HMGET', KEYS[1], 'tokens', 'stamp')
local tokens, stamp = tonumber(t[1]) or cap, tonumber(t[2]) or now
local n = math.floor(math.max(0, now - stamp) / every)
if n > 0 then
	tokens = math.min(cap, tokens + n * step)
	stamp = stamp + n * every
end
local ok, wait = 0, 0
if tokens >= 1 then
	ok, tokens = 1, tokens - 1
else
	wait = every - (now - stamp)
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

// bucketResult is the decoded reply of bucketScript.
type bucketResult struct {
	allowed bool
	left    int64
	wait    time.Duration
}

func runBucket(c echo.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (bucketResult, error) {
	raw, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		time.Now().UnixMilli(),
		int64(cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return bucketResult{}, err
	}
	if len(raw) != 3 {
		return bucketResult{}, fmt.Errorf("unexpected bucket reply %v", raw)
	}
	return bucketResult{
		allowed: raw[0] == 1,
		left:    raw[1],
		wait:    time.Duration(raw[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket throttles board writes per key.  Without Redis, or when
// disabled, it passes everything through; Redis errors let the request in.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if log == nil {
		log = zap.NewNop()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			res, err := runBucket(c, rdb, cfg, key)
			if err != nil {
				log.Warn("ratelimit: bucket unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.left, 10))
			if res.allowed {
				return next(c)
			}

			secs := int(math.Ceil(res.wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			h.Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too many board updates",
				"retry_after": secs,
			})
		}
	}
}

// rateKey picks the bucket.  Front-desk PCs usually share one address, so
// the default keys by the signed-in subject and role.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		return cfg.Prefix + ":ip:" + ip
	case "subject":
		return cfg.Prefix + ":sub:" + subject(c)
	default:
		role, _ := c.Get(CtxRole).(string)
		if role == "" {
			role = "none"
		}
		return cfg.Prefix + ":sub:" + subject(c) + ":" + role
	}
}
