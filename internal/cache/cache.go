package cache

import (
	"context"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Cache is the port every expensive pipeline step caches through. Values are
// opaque strings (callers marshal what they need); a miss is (_, false).
// Writes are last-write-wins: concurrent requests may both miss and both
// write, which is fine because every cached computation is a pure function of
// the key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// Local is the process-local tier.
type Local struct {
	c *gocache.Cache
}

func NewLocal(defaultTTL time.Duration) *Local {
	return &Local{c: gocache.New(defaultTTL, 10*time.Minute)}
}

func (l *Local) Get(_ context.Context, key string) (string, bool) {
	v, ok := l.c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (l *Local) Set(_ context.Context, key, value string, ttl time.Duration) {
	l.c.Set(key, value, ttl)
}

// Shared is the Redis-backed tier shared across portal instances. Redis
// failures degrade to cache misses; the pipeline never depends on the cache
// being reachable.
type Shared struct {
	client *redis.Client
	logger *log.Logger
}

func NewShared(client *redis.Client, logger *log.Logger) *Shared {
	return &Shared{client: client, logger: logger}
}

func (s *Shared) Get(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		s.logger.Printf("shared cache get %s: %v", key, err)
		return "", false
	}
	return val, true
}

func (s *Shared) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Printf("shared cache set %s: %v", key, err)
	}
}

// Tiered chains a fast local tier in front of the shared tier. Gets fall
// through local -> shared and backfill local on a shared hit; Sets write both
// tiers with their own TTLs.
type Tiered struct {
	local     Cache
	shared    Cache
	localTTL  time.Duration
	sharedTTL time.Duration
}

func NewTiered(local, shared Cache, localTTL, sharedTTL time.Duration) *Tiered {
	return &Tiered{local: local, shared: shared, localTTL: localTTL, sharedTTL: sharedTTL}
}

func (t *Tiered) Get(ctx context.Context, key string) (string, bool) {
	if v, ok := t.local.Get(ctx, key); ok {
		return v, true
	}
	if t.shared == nil {
		return "", false
	}
	v, ok := t.shared.Get(ctx, key)
	if ok {
		t.local.Set(ctx, key, v, t.localTTL)
	}
	return v, ok
}

// Set ignores the caller's TTL and applies the per-tier TTLs the chain was
// built with (local hours, shared about a day).
func (t *Tiered) Set(ctx context.Context, key, value string, _ time.Duration) {
	t.local.Set(ctx, key, value, t.localTTL)
	if t.shared != nil {
		t.shared.Set(ctx, key, value, t.sharedTTL)
	}
}
