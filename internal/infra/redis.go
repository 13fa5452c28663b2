package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// replyTimeout caps how long an idempotency command waits for Redis. A reply
// lost past this point is reported as an error and the reservation is retried.
const replyTimeout = 2 * time.Second

// NewRedisClient opens the client behind the idempotency guard. The client
// does not retry on its own; retries belong to the saga step policy.
func NewRedisClient(ctx context.Context, url, appName string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("REDIS_URL is required for the idempotency guard")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	redisOptions(opt, appName)

	client := redis.NewClient(opt)

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := client.Ping(probeCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping idempotency redis: %w", err)
	}
	return client, nil
}

func redisOptions(opt *redis.Options, appName string) {
	if appName != "" {
		opt.ClientName = appName
	}
	opt.MaxRetries = -1
	if opt.ReadTimeout <= 0 || opt.ReadTimeout > replyTimeout {
		opt.ReadTimeout = replyTimeout
	}
	if opt.WriteTimeout <= 0 || opt.WriteTimeout > replyTimeout {
		opt.WriteTimeout = replyTimeout
	}
}
