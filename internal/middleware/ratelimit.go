package middleware

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"threads/internal/models"
	"threads/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// KeyFunc derives one rate limit identity from a request. An empty key
// skips that counter for the request.
type KeyFunc func(c *fiber.Ctx) string

// ByClient keys on the authenticated user, or the remote IP for anonymous requests.
func ByClient(c *fiber.Ctx) string {
	if uid, ok := UserID(c); ok {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// ByEmail keys on the "email" field of a JSON body, so guesses against one
// account are counted no matter how many addresses they come from.
func ByEmail(c *fiber.Ctx) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.App().Config().JSONDecoder(c.Body(), &body); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		return ""
	}
	return "email:" + email
}

// Limit throttles one endpoint to Max requests per Window for every key.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	// Keys defaults to ByClient.
	Keys []KeyFunc
	// FailClosed rejects requests with 503 while Redis is unreachable.
	FailClosed bool
}

// RateLimiter counts requests in fixed windows stored in Redis.
type RateLimiter struct {
	rdb     *redis.Client
	enabled bool
}

// NewRateLimiter returns a limiter for the given environment. Requests are
// never throttled under "test", "development" or "stress".
func NewRateLimiter(rdb *redis.Client, env string) *RateLimiter {
	switch env {
	case "", "test", "development", "stress":
		return &RateLimiter{rdb: rdb}
	}
	return &RateLimiter{rdb: rdb, enabled: true}
}

// Enabled reports whether requests are being counted.
func (l *RateLimiter) Enabled() bool { return l.enabled }

// Allow counts one request for key under name and reports whether the count
// is still within max, along with the time left in the current window.
func (l *RateLimiter) Allow(ctx context.Context, name, key string, max int, window time.Duration) (bool, time.Duration, error) {
	if !l.enabled {
		return true, 0, nil
	}
	if l.rdb == nil {
		return false, 0, errors.New("rate limiter has no redis client")
	}

	redisKey := "rl:" + name + ":" + key
	var count *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		count = p.Incr(ctx, redisKey)
		ttl = p.PTTL(ctx, redisKey)
		return nil
	}); err != nil {
		return false, 0, err
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		// First hit of the window, or a counter left without expiry.
		if err := l.rdb.PExpire(ctx, redisKey, window).Err(); err != nil {
			return false, 0, err
		}
		remaining = window
	}
	return count.Val() <= int64(max), remaining, nil
}

// Handler enforces limit on every key the request yields.
func (l *RateLimiter) Handler(limit Limit) fiber.Handler {
	keys := limit.Keys
	if len(keys) == 0 {
		keys = []KeyFunc{ByClient}
	}

	return func(c *fiber.Ctx) error {
		if !l.enabled || limit.Max <= 0 {
			return c.Next()
		}

		for _, keyFn := range keys {
			key := keyFn(c)
			if key == "" {
				continue
			}

			allowed, retryAfter, err := l.Allow(c.UserContext(), limit.Name, key, limit.Max, limit.Window)
			if err != nil {
				observability.GlobalLogger.WarnContext(c.UserContext(), "rate limit unavailable",
					slog.String("limit", limit.Name), slog.String("error", err.Error()))
				if limit.FailClosed {
					return models.RespondWithError(c, fiber.StatusServiceUnavailable,
						&models.AppError{Code: models.CodeInternal, Message: "Rate limiting unavailable"})
				}
				return c.Next()
			}
			if !allowed {
				observability.RateLimitRejections.WithLabelValues(limit.Name).Inc()
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError())
			}
		}
		return c.Next()
	}
}
