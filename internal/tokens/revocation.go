package tokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocations stores revoked access tokens until they would expire.
// Keys hold a hash of the token, never the token itself.
type RedisRevocations struct {
	client *redis.Client
}

func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client}
}

func revocationKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "revoked:access:" + hex.EncodeToString(sum[:])
}

// Revoke blacklists raw for ttl.
func (r *RedisRevocations) Revoke(ctx context.Context, raw string, ttl time.Duration) error {
	return r.client.Set(ctx, revocationKey(raw), "1", ttl).Err()
}

// IsRevoked reports whether raw is blacklisted.
func (r *RedisRevocations) IsRevoked(ctx context.Context, raw string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationKey(raw)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
