package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/store"
)

// Cache holds the most recently accepted feed for a short TTL so bursts of
// API calls do not hammer the upstreams.
type Cache interface {
	Get(ctx context.Context) (*Feed, bool)
	Put(ctx context.Context, f *Feed)
	Close() error
}

const (
	memoryKey = "live"
	redisKey  = "crazy-time-predictor:feed"
)

// NewCache builds the cache backend selected by cfg. A zero TTL disables
// caching and returns a nil Cache.
func NewCache(ctx context.Context, cfg config.FeedConfig) (Cache, error) {
	if cfg.CacheTTL <= 0 {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "", "memory":
		return NewMemoryCache(cfg.CacheTTL), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password(),
			DB:       cfg.Cache.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("feed: redis ping %s: %w", cfg.Cache.Addr, err)
		}
		return NewRedisCache(client, cfg.CacheTTL), nil
	default:
		return nil, fmt.Errorf("feed: unknown cache backend %q", cfg.Cache.Backend)
	}
}

// MemoryCache keeps the feed in an in-process store.
type MemoryCache struct {
	st *store.Store[*Feed]
}

// NewMemoryCache creates a MemoryCache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{st: store.New[*Feed](ttl)}
}

// Store exposes the underlying store so callers can run its evictor or
// inject a clock.
func (c *MemoryCache) Store() *store.Store[*Feed] { return c.st }

func (c *MemoryCache) Get(context.Context) (*Feed, bool) { return c.st.Fresh(memoryKey) }

func (c *MemoryCache) Put(_ context.Context, f *Feed) { c.st.Put(memoryKey, f) }

func (c *MemoryCache) Close() error { return nil }

// RedisCache shares the feed between predictor replicas through redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached feed. Redis errors are logged and read as a miss.
func (c *RedisCache) Get(ctx context.Context) (*Feed, bool) {
	data, err := c.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("feed: redis get failed", zap.Error(err))
		}
		return nil, false
	}
	var f Feed
	if err := json.Unmarshal(data, &f); err != nil {
		zap.L().Warn("feed: redis entry corrupt", zap.Error(err))
		return nil, false
	}
	return &f, true
}

// Put stores f with the cache TTL.
func (c *RedisCache) Put(ctx context.Context, f *Feed) {
	data, err := json.Marshal(f)
	if err != nil {
		zap.L().Warn("feed: encode for redis", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, redisKey, data, c.ttl).Err(); err != nil {
		zap.L().Warn("feed: redis set failed", zap.Error(err))
	}
}

func (c *RedisCache) Close() error { return c.client.Close() }
