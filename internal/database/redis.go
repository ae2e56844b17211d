package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients holds one client for rate-limit commands and a separate one
// for the long-lived catalog event subscription.
type RedisClients struct {
	Limiter *redis.Client
	PubSub  *redis.Client
}

func NewRedisClients(ctx context.Context, redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	limiterClient := redis.NewClient(opt)
	if err := limiterClient.Ping(ctx).Err(); err != nil {
		limiterClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (limiter): %w", err)
	}

	// PubSub client (separate connection)
	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		limiterClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		Limiter: limiterClient,
		PubSub:  pubsubClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.Limiter.Close()
	r.PubSub.Close()
}
