package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"thaileague/pipeline/internal/metrics"
)

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Cache is a small JSON-over-Redis cache. Values are marshalled on Set and
// unmarshalled into the caller's destination on Get.
type Cache struct {
	client *redis.Client
	name   string
}

// New connects to Redis and verifies the connection
func New(cfg Config, name string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		PoolSize:     10,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Int("db", cfg.DB).
		Str("cache", name).
		Msg("Connected to Redis")

	return &Cache{client: client, name: name}, nil
}

// Get fetches a key into dest. The boolean reports whether the key was
// present; a miss is not an error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.RecordCacheMiss(c.name)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// Stored garbage is treated as a miss so the caller recomputes
		log.Warn().Err(err).Str("key", key).Msg("Dropping unreadable cache entry")
		c.client.Del(ctx, key)
		metrics.RecordCacheMiss(c.name)
		return false, nil
	}

	metrics.RecordCacheHit(c.name)
	return true, nil
}

// Set stores a value under key with the given TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}

	return nil
}

// Delete removes keys
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}

	return nil
}

// DeletePattern removes every key matching a glob pattern and reports how
// many were dropped.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("failed to delete cache keys: %w", err)
	}

	log.Debug().
		Str("pattern", pattern).
		Int("deleted", len(keys)).
		Msg("Cache keys invalidated")

	return len(keys), nil
}

// Health checks Redis connectivity
func (c *Cache) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
