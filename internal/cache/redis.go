package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New creates a cache from config. An empty Addr yields the no-op cache, so
// callers never need to branch on cache availability.
func New(cfg Config, logger *zap.Logger) Cache {
	if cfg.Addr == "" {
		logger.Info("cache disabled, no redis address configured")
		return Nop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{client: client, logger: logger}
}

// Get returns the value for key. Errors count as misses.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return val, true
}

// Set stores value under key. Errors are logged and dropped.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// ZRevRange returns sorted-set members by descending score.
func (r *Redis) ZRevRange(ctx context.Context, key string, start, stop int64) []string {
	members, err := r.client.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Debug("cache zrevrange failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return members
}

// LRange returns a slice of a list.
func (r *Redis) LRange(ctx context.Context, key string, start, stop int64) []string {
	items, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Debug("cache lrange failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return items
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
