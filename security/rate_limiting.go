package security

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis  redis.Cmdable
	limit  int64
	window time.Duration
	logger *slog.Logger
}

// NewRateLimiter allows limit mutating requests per caller per minute.
func NewRateLimiter(redisClient redis.Cmdable, limit int, logger *slog.Logger) *RateLimiter {
	if limit <= 0 {
		limit = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		redis:  redisClient,
		limit:  int64(limit),
		window: time.Minute,
		logger: logger,
	}
}

// AntiBot rejects requests from crawler-like user agents.
func (r *RateLimiter) AntiBot() *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "consoleAntiBot",
		Func: func(e *core.RequestEvent) error {
			if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
				return apis.NewForbiddenError("Access denied", nil)
			}
			return e.Next()
		},
	}
}

// MutationLimit counts check-ins, undos and booking edits per admin, or per
// IP for anonymous callers, in a fixed one-minute window. Reads pass freely.
// When Redis is unreachable the request goes through.
func (r *RateLimiter) MutationLimit() *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "consoleMutationLimit",
		Func: func(e *core.RequestEvent) error {
			if e.Request.Method == http.MethodGet || e.Request.Method == http.MethodHead {
				return e.Next()
			}

			key := rateLimitKey(e)
			ctx := e.Request.Context()

			count, err := r.redis.Incr(ctx, key).Result()
			if err != nil {
				r.logger.Warn("rate limit counter unavailable", "key", key, "error", err)
				return e.Next()
			}
			if count == 1 {
				if err := r.redis.Expire(ctx, key, r.window).Err(); err != nil {
					r.logger.Warn("rate limit expiry failed", "key", key, "error", err)
				}
			}
			if count > r.limit {
				return apis.NewApiError(http.StatusTooManyRequests, "Too many requests", nil)
			}
			return e.Next()
		},
	}
}

func rateLimitKey(e *core.RequestEvent) string {
	if e.Auth != nil {
		return fmt.Sprintf("ratelimit:admin:%s", e.Auth.Id)
	}
	return fmt.Sprintf("ratelimit:ip:%s", e.RemoteIP())
}

func isSuspiciousUserAgent(ua string) bool {
	ua = strings.ToLower(ua)
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
