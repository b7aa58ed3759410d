// Package idempotency guards checkout against double submits that carry the
// same Idempotency-Key.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 24 * time.Hour
	inFlight   = "in-flight"
)

var ErrInFlight = errors.New("a request with this idempotency key is still in progress")

type Guard interface {
	// Begin reserves key. A non-empty result is the order number of an earlier
	// completed request with the same key.
	Begin(ctx context.Context, userID, key string) (string, error)
	Complete(ctx context.Context, userID, key, orderNumber string) error
	Abort(ctx context.Context, userID, key string) error
}

type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Begin(ctx context.Context, userID, key string) (string, error) {
	k := redisKey(userID, key)

	// The second round covers a marker that expired between SETNX and GET.
	for range 2 {
		ok, err := g.rdb.SetNX(ctx, k, inFlight, g.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("redis setnx failed: %w", err)
		}
		if ok {
			return "", nil
		}

		val, err := g.rdb.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("redis get failed: %w", err)
		}
		if val == inFlight {
			return "", ErrInFlight
		}
		return val, nil
	}
	return "", ErrInFlight
}

func (g *RedisGuard) Complete(ctx context.Context, userID, key, orderNumber string) error {
	if err := g.rdb.Set(ctx, redisKey(userID, key), orderNumber, g.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (g *RedisGuard) Abort(ctx context.Context, userID, key string) error {
	if err := g.rdb.Del(ctx, redisKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func redisKey(userID, key string) string {
	return fmt.Sprintf("checkout:%s:%s", userID, key)
}

// Nop lets every request through.
type Nop struct{}

func (Nop) Begin(context.Context, string, string) (string, error) { return "", nil }
func (Nop) Complete(context.Context, string, string, string) error { return nil }
func (Nop) Abort(context.Context, string, string) error { return nil }
