package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"

	"github.com/anidigital/harvest-hub/internal/config"
)

// Cache stores encoded weather responses for a bounded time.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// NewCache builds the cache selected by cfg.CacheBackend.
func NewCache(cfg config.WeatherConfig) (Cache, error) {
	switch cfg.CacheBackend {
	case "redis":
		return NewRedisCache(cfg.RedisURL, "harvest:")
	case "noop":
		return NoopCache{}, nil
	default:
		return NewMemoryCache(cfg.CacheSize)
	}
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NoopCache) Set(context.Context, string, []byte, time.Duration) {}

// MemoryCache is a size-bounded in-process LRU with per-entry expiry.
type MemoryCache struct {
	mu    sync.Mutex
	cache *lru.Cache
	now   func() time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache returns an LRU holding at most size entries.
func NewMemoryCache(size int) (*MemoryCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{cache: c, now: time.Now}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(cacheEntry)
	if !c.now().Before(e.expiresAt) {
		c.cache.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, cacheEntry{value: value, expiresAt: c.now().Add(ttl)})
}

// Len reports the number of entries, expired or not.
func (c *MemoryCache) Len() int { return c.cache.Len() }

// RedisCache shares cached responses between server replicas.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(redisURL, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisCache{client: client, prefix: prefix}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.client.Set(ctx, c.prefix+key, value, ttl)
}

// Close releases the connection pool.
func (c *RedisCache) Close() error { return c.client.Close() }
