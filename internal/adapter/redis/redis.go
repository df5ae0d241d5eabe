// Package redis implements the session liveness and presence ports on Redis.
package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/config"
	"github.com/Strob0t/PropertyHub/internal/port/tokenstore"
	"github.com/Strob0t/PropertyHub/internal/resilience"
)

// NewClient creates a Redis client from config and verifies the connection.
func NewClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return c, nil
}

// NewBreaker builds the breaker shared by the liveness store and the presence
// tracker. A token that is not live is an answer, not a failure, and never
// counts towards opening the breaker.
func NewBreaker(cfg config.Breaker, log *zap.Logger) *resilience.Breaker {
	return resilience.NewBreaker(cfg.MaxFailures, cfg.Timeout,
		resilience.WithName("redis"),
		resilience.WithIgnoredErrors(tokenstore.ErrNotLive),
		resilience.OnStateChange(func(name, from, to string) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from), zap.String("to", to))
		}),
	)
}

// guard runs fn through b, or directly when b is nil.
func guard(b *resilience.Breaker, fn func() error) error {
	if b == nil {
		return fn()
	}
	return b.Execute(fn)
}
