package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Strob0t/PropertyHub/internal/port/tokenstore"
	"github.com/Strob0t/PropertyHub/internal/resilience"
)

const accessTokenPrefix = "accessToken:"

func accessTokenKey(token string) string { return accessTokenPrefix + token }

// Liveness implements tokenstore.LivenessStore. Every call goes through the
// breaker; while it is open LiveUser fails and verification fails closed.
type Liveness struct {
	rdb     *redis.Client
	breaker *resilience.Breaker
}

// NewLiveness creates a liveness store. breaker may be nil.
func NewLiveness(rdb *redis.Client, breaker *resilience.Breaker) *Liveness {
	return &Liveness{rdb: rdb, breaker: breaker}
}

func (l *Liveness) do(fn func() error) error {
	return guard(l.breaker, fn)
}

func (l *Liveness) MarkLive(ctx context.Context, token, userID string, ttl time.Duration) error {
	return l.do(func() error {
		if err := l.rdb.Set(ctx, accessTokenKey(token), userID, ttl).Err(); err != nil {
			return fmt.Errorf("mark token live: %w", err)
		}
		return nil
	})
}

func (l *Liveness) LiveUser(ctx context.Context, token string) (string, error) {
	var userID string
	err := l.do(func() error {
		v, err := l.rdb.Get(ctx, accessTokenKey(token)).Result()
		if errors.Is(err, redis.Nil) {
			return tokenstore.ErrNotLive
		}
		if err != nil {
			return fmt.Errorf("lookup live token: %w", err)
		}
		userID = v
		return nil
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (l *Liveness) Revoke(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = accessTokenKey(t)
	}
	return l.do(func() error {
		if err := l.rdb.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("revoke tokens: %w", err)
		}
		return nil
	})
}
