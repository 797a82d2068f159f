package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const localLimiterCacheSize = 4096

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// RateLimiter counts requests per user in fixed Redis windows. Without Redis,
// or while Redis is failing, it falls back to in-process token buckets.
type RateLimiter struct {
	redis  redis.Cmdable
	config RateLimitConfig
	now    func() time.Time

	mu    sync.Mutex
	local *lru.Cache
}

// NewRateLimiter creates a new rate limiter instance. redisClient may be nil.
func NewRateLimiter(redisClient redis.Cmdable, config RateLimitConfig) *RateLimiter {
	local, _ := lru.New(localLimiterCacheSize)
	return &RateLimiter{
		redis:  redisClient,
		config: config,
		now:    time.Now,
		local:  local,
	}
}

// NewRecipeCreationRateLimiter limits recipe creation to limit per hour per user.
func NewRecipeCreationRateLimiter(redisClient redis.Cmdable, limit int) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Hour,
		Limit:     limit,
		KeyPrefix: "rate_limit:recipe_creation",
	})
}

// RateLimitMiddleware returns a Gin middleware that enforces rate limiting.
// It must run after AuthMiddleware.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "authentication credentials were not provided"})
			return
		}

		allowed, remaining, resetTime := rl.Allow(c.Request.Context(), strconv.FormatUint(uint64(userID), 10))

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(resetTime.Sub(rl.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": fmt.Sprintf("rate limit of %d requests per %v exceeded", rl.config.Limit, rl.config.Window),
			})
			return
		}

		c.Next()
	}
}

// Allow records one request for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time) {
	if rl.redis != nil {
		allowed, remaining, reset, err := rl.allowRedis(ctx, key)
		if err == nil {
			return allowed, remaining, reset
		}
		log.Warn().Err(err).Str("prefix", rl.config.KeyPrefix).Msg("Rate limit check failed, using local limiter")
	}
	return rl.allowLocal(key)
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, int, time.Time, error) {
	windowStart := rl.now().Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	count, err := rl.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, time.Time{}, err
	}
	if count == 1 {
		if err := rl.redis.Expire(ctx, redisKey, rl.config.Window).Err(); err != nil {
			return false, 0, time.Time{}, err
		}
	}

	remaining := rl.config.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= rl.config.Limit, remaining, windowStart.Add(rl.config.Window), nil
}

func (rl *RateLimiter) allowLocal(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var limiter *rate.Limiter
	if cached, ok := rl.local.Get(key); ok {
		limiter = cached.(*rate.Limiter)
	} else {
		every := rl.config.Window / time.Duration(rl.config.Limit)
		limiter = rate.NewLimiter(rate.Every(every), rl.config.Limit)
		rl.local.Add(key, limiter)
	}

	now := rl.now()
	allowed := limiter.AllowN(now, 1)
	tokens := int(limiter.TokensAt(now))
	if tokens < 0 {
		tokens = 0
	}
	reset := now
	if !allowed {
		reset = now.Add(rl.config.Window / time.Duration(rl.config.Limit))
	}
	return allowed, tokens, reset
}
