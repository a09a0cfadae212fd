// Package rediscache memoizes mining results in Redis for a short TTL.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"videominer/internal/core/domain"
)

const keyPrefix = "videominer:mine:"

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cache implements ports.ResultCache on Redis.
type Cache struct {
	client kv
	closer func() error
	ttl    time.Duration
	logger zerolog.Logger
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, ttl time.Duration, logger zerolog.Logger) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := newCache(client, ttl, logger)
	c.closer = client.Close
	return c, nil
}

func newCache(client kv, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		client: client,
		closer: func() error { return nil },
		ttl:    ttl,
		logger: logger.With().Str("component", "rediscache").Logger(),
	}
}

// Get returns a cached result. Redis errors count as a miss.
func (c *Cache) Get(ctx context.Context, key string) (*domain.MiningResult, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}
	var result domain.MiningResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry corrupt")
		return nil, false
	}
	return &result, true
}

// Set stores result for the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, result domain.MiningResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.closer()
}

// Key derives the cache key for one mining request. Source order does not matter.
func Key(rawURL string, sources domain.SourceSet) string {
	names := make([]string, 0, len(sources))
	for _, s := range sources.Ordered() {
		names = append(names, string(s))
	}
	sort.Strings(names)
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(rawURL)+"|"+strings.Join(names, ",")))
	return keyPrefix + id.String()
}

// Noop is a ResultCache that never stores anything.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) (*domain.MiningResult, bool) { return nil, false }
func (Noop) Set(ctx context.Context, key string, result domain.MiningResult) error { return nil }
