package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func limitedRouter(rl *RateLimiter) *gin.Engine {
	router := gin.New()
	router.POST("/", func(c *gin.Context) {
		c.Set(ContextUserID, uint(42))
		c.Next()
	}, rl.RateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func post(router http.Handler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	return w
}

func TestRateLimiterRedisWindow(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	rl := NewRecipeCreationRateLimiter(client, 2)
	rl.now = func() time.Time { return fixedNow }

	key := "rate_limit:recipe_creation:42:1714564800"
	redisMock.ExpectIncr(key).SetVal(1)
	redisMock.ExpectExpire(key, time.Hour).SetVal(true)
	redisMock.ExpectIncr(key).SetVal(2)
	redisMock.ExpectIncr(key).SetVal(3)

	router := limitedRouter(rl)

	w := post(router)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1714568400", w.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusCreated, post(router).Code)

	w = post(router)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1800", w.Header().Get("Retry-After"))
	require.NoError(t, redisMock.ExpectationsWereMet())
}

func TestRateLimiterFallsBackWhenRedisFails(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	rl := NewRecipeCreationRateLimiter(client, 1)
	rl.now = func() time.Time { return fixedNow }

	redisMock.Regexp().ExpectIncr(`rate_limit:.*`).SetErr(errors.New("connection refused"))
	redisMock.Regexp().ExpectIncr(`rate_limit:.*`).SetErr(errors.New("connection refused"))

	router := limitedRouter(rl)
	assert.Equal(t, http.StatusCreated, post(router).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(router).Code)
}

func TestRateLimiterLocalOnly(t *testing.T) {
	rl := NewRecipeCreationRateLimiter(nil, 2)
	now := fixedNow
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	allowed, _, _ := rl.Allow(ctx, "1")
	assert.True(t, allowed)
	allowed, _, _ = rl.Allow(ctx, "1")
	assert.True(t, allowed)
	allowed, _, _ = rl.Allow(ctx, "1")
	assert.False(t, allowed)

	allowed, _, _ = rl.Allow(ctx, "2")
	assert.True(t, allowed, "limits are per key")

	now = now.Add(30 * time.Minute)
	allowed, _, _ = rl.Allow(ctx, "1")
	assert.True(t, allowed, "tokens refill over the window")
}

func TestRateLimitRequiresUser(t *testing.T) {
	rl := NewRecipeCreationRateLimiter(nil, 1)
	router := gin.New()
	router.POST("/", rl.RateLimitMiddleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	assert.Equal(t, http.StatusUnauthorized, post(router).Code)
}
