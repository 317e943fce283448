package relance

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore grants at most one evaluation per key within ttl.
type CooldownStore interface {
	// Acquire returns true when no grant for key is active, and starts one.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisCooldown keeps cooldown keys in Redis so every replica shares them.
type RedisCooldown struct {
	client *redis.Client
	prefix string
}

// NewRedisCooldown returns a Redis-backed cooldown store.
func NewRedisCooldown(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{client: client, prefix: "relance:cooldown:"}
}

// Acquire issues SET key 1 NX PX ttl.
func (r *RedisCooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.prefix+key, "1", ttl).Result()
}

// MemoryCooldown is a single-process cooldown store.
type MemoryCooldown struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewMemoryCooldown returns an empty in-memory cooldown store.
func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{until: map[string]time.Time{}, now: time.Now}
}

func (m *MemoryCooldown) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if u, ok := m.until[key]; ok && now.Before(u) {
		return false, nil
	}
	m.until[key] = now.Add(ttl)
	// expired entries are dropped lazily
	for k, u := range m.until {
		if !now.Before(u) {
			delete(m.until, k)
		}
	}
	return true, nil
}
