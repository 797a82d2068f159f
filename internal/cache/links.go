// Package cache holds the Redis-backed caches: short-link resolution and the token deny-list.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ShortLinkTTL is how long a resolved short link stays cached.
const ShortLinkTTL = 24 * time.Hour

// ShortLinks caches short-link code to recipe id lookups.
type ShortLinks struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewShortLinks(client redis.Cmdable) *ShortLinks {
	return &ShortLinks{client: client, ttl: ShortLinkTTL}
}

func shortLinkKey(code string) string {
	return fmt.Sprintf("shortlink:%s", code)
}

// Get returns the cached recipe id for code. found is false on a cache miss.
func (c *ShortLinks) Get(ctx context.Context, code string) (recipeID uint, found bool, err error) {
	val, err := c.client.Get(ctx, shortLinkKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get short link from Redis: %w", err)
	}

	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt short link cache entry %q: %w", val, err)
	}
	return uint(id), true, nil
}

func (c *ShortLinks) Set(ctx context.Context, code string, recipeID uint) error {
	if err := c.client.Set(ctx, shortLinkKey(code), strconv.FormatUint(uint64(recipeID), 10), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store short link in Redis: %w", err)
	}
	return nil
}

func (c *ShortLinks) Delete(ctx context.Context, code string) error {
	if err := c.client.Del(ctx, shortLinkKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete short link from Redis: %w", err)
	}
	return nil
}
