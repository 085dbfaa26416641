package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"threads/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestNewRateLimiter_EnvironmentBypass(t *testing.T) {
	for _, env := range []string{"", "test", "development", "stress"} {
		t.Run(env, func(t *testing.T) {
			l := NewRateLimiter(nil, env)
			assert.False(t, l.Enabled())
			allowed, _, err := l.Allow(context.Background(), "login", "ip:1", 1, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed)
		})
	}
	assert.True(t, NewRateLimiter(nil, "production").Enabled())
}

func TestRateLimiter_NilRedis(t *testing.T) {
	allowed, _, err := NewRateLimiter(nil, "production").Allow(context.Background(), "login", "ip:1", 1, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestRateLimiter_CountsWithinWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRateLimiter(rdb, "production")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, remaining, err := l.Allow(ctx, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, time.Minute, remaining)
	}

	allowed, _, err := l.Allow(ctx, "login", "ip:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, err = l.Allow(ctx, "login", "ip:2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "other keys have their own counter")

	mr.FastForward(2 * time.Minute)
	allowed, _, err = l.Allow(ctx, "login", "ip:1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_HandlerRejectsWithErrorShape(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewRateLimiter(rdb, "production")

	app := fiber.New()
	app.Post("/auth/register", l.Handler(Limit{Name: "register", Max: 1, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp := postJSON(t, app, "/auth/register", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, "/auth/register", `{}`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeRateLimited, body.Code)
}

func TestRateLimiter_KeysOnSubmittedEmail(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewRateLimiter(rdb, "production")

	app := fiber.New()
	app.Post("/auth/login", l.Handler(Limit{Name: "login", Max: 2, Window: time.Minute, Keys: []KeyFunc{ByEmail}}),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 2; i++ {
		resp := postJSON(t, app, "/auth/login", `{"email":"alice@example.com","password":"x"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := postJSON(t, app, "/auth/login", `{"email":" ALICE@example.com ","password":"y"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "email is normalized before counting")

	resp = postJSON(t, app, "/auth/login", `{"email":"bob@example.com","password":"x"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for i := 0; i < 3; i++ {
		resp = postJSON(t, app, "/auth/login", `not json`)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "bodies without an email are not counted by email")
	}
}

func TestRateLimiter_FailPolicy(t *testing.T) {
	l := NewRateLimiter(nil, "production")

	app := fiber.New()
	app.Get("/open", l.Handler(Limit{Name: "open", Max: 1, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/closed", l.Handler(Limit{Name: "closed", Max: 1, Window: time.Minute, FailClosed: true}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/closed", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestByClient(t *testing.T) {
	app := fiber.New()
	var anon, authed string
	app.Get("/anon", func(c *fiber.Ctx) error {
		anon = ByClient(c)
		return nil
	})
	app.Get("/authed", func(c *fiber.Ctx) error {
		SetUserID(c, 7)
		authed = ByClient(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/anon", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/authed", nil))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(anon, "ip:"))
	assert.Equal(t, "user:7", authed)
}
