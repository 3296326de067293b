package utils

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis with connection pooling. url may be a
// redis:// URL or a bare host:port. When the first ping fails the client is
// still returned along with the error so the caller can run degraded.
func NewRedisClient(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{
			Addr: url,
		}
	}

	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	if err := RedisHealthCheck(ctx, client); err != nil {
		return client, err
	}

	logger.Info("connected to redis", slog.String("addr", opts.Addr))
	return client, nil
}

// RedisHealthCheck pings Redis with a short deadline.
func RedisHealthCheck(ctx context.Context, client redis.Cmdable) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	return nil
}
