package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenyList records logged-out token ids until the token would have expired anyway.
type TokenDenyList struct {
	client redis.Cmdable
}

func NewTokenDenyList(client redis.Cmdable) *TokenDenyList {
	return &TokenDenyList{client: client}
}

func denyKey(jti string) string {
	return fmt.Sprintf("token:denied:%s", jti)
}

// Deny marks jti as revoked for ttl. A non-positive ttl is a no-op since the token is already expired.
func (d *TokenDenyList) Deny(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denyKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (d *TokenDenyList) IsDenied(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, denyKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
