package contacts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultCacheKey is the Redis hash holding a cached lookup.
const DefaultCacheKey = "imessage-max:contacts"

// RedisCache wraps a Directory and keeps its built lookup in a Redis hash so
// that short-lived processes skip rebuilding it. Redis failures fall through
// to the wrapped directory.
type RedisCache struct {
	Next   Directory
	Client redis.UniversalClient
	Key    string
	TTL    time.Duration
	Logger *zap.Logger
}

// NewRedisCache connects to the Redis server at url (redis://host:port/db).
func NewRedisCache(next Directory, url string, ttl time.Duration, logger *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{
		Next:   next,
		Client: redis.NewClient(opts),
		Key:    DefaultCacheKey,
		TTL:    ttl,
		Logger: logger,
	}, nil
}

// IsAvailable defers to the wrapped directory.
func (c *RedisCache) IsAvailable() bool {
	return c.Next != nil && c.Next.IsAvailable()
}

// BuildLookup returns the cached lookup, building and storing it on a miss.
func (c *RedisCache) BuildLookup(ctx context.Context) (map[string]string, error) {
	log := c.logger()
	cached, err := c.Client.HGetAll(ctx, c.key()).Result()
	switch {
	case err != nil:
		log.Warn("contacts cache read failed", zap.Error(err))
	case len(cached) > 0:
		log.Debug("contacts cache hit", zap.Int("handles", len(cached)))
		return cached, nil
	}

	lookup, err := c.Next.BuildLookup(ctx)
	if err != nil {
		return nil, err
	}
	if len(lookup) == 0 {
		return lookup, nil
	}

	values := make(map[string]any, len(lookup))
	for handle, name := range lookup {
		values[handle] = name
	}
	key := c.key()
	_, err = c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		if c.TTL > 0 {
			pipe.Expire(ctx, key, c.TTL)
		}
		return nil
	})
	if err != nil {
		log.Warn("contacts cache write failed", zap.Error(err))
	}
	return lookup, nil
}

// Close releases the Redis client.
func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) key() string {
	if c.Key == "" {
		return DefaultCacheKey
	}
	return c.Key
}

func (c *RedisCache) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
