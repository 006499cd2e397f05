package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a shared Redis instance, for deployments where
// multiple pipeline processes want a common cache. Backend errors degrade
// to cache-misses; the pipeline never depends on Redis being up.
type Redis struct {
	client  *redis.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedis creates a Redis-backed store. addr is host:port.
func NewRedis(addr, password string, db int, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Get fetches key, reporting any backend failure as a miss.
func (r *Redis) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Debug("redis get failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

// Set writes key with a TTL. Failures are logged and dropped.
func (r *Redis) Set(key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Debug("redis set failed, dropping write", "key", key, "error", err)
	}
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
