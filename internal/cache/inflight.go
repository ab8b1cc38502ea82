package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	inflightKeyPrefix  = "po:inflight:"
	defaultInflightTTL = 5 * time.Minute
)

// InflightGuard claims a purchase order for the duration of one invocation so
// two concurrent deliveries of the same email cannot both dispatch.
type InflightGuard interface {
	// Claim returns false when another invocation holds the order.
	Claim(ctx context.Context, poID string) (bool, error)
	Release(ctx context.Context, poID string) error
}

type redisInflightGuard struct {
	client *redis.Client
	ttl    time.Duration
}

type noopInflightGuard struct{}

// NewInflightGuard returns a Redis-backed guard. The TTL bounds how long a
// crashed invocation can block redelivery.
func NewInflightGuard(client *redis.Client, ttl time.Duration) InflightGuard {
	if ttl <= 0 {
		ttl = defaultInflightTTL
	}
	return &redisInflightGuard{client: client, ttl: ttl}
}

// NewNoopInflightGuard always grants the claim.
func NewNoopInflightGuard() InflightGuard {
	return &noopInflightGuard{}
}

func (g *redisInflightGuard) Claim(ctx context.Context, poID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, inflightKeyPrefix+poID, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim failed: %w", err)
	}
	return ok, nil
}

func (g *redisInflightGuard) Release(ctx context.Context, poID string) error {
	if err := g.client.Del(ctx, inflightKeyPrefix+poID).Err(); err != nil {
		return fmt.Errorf("redis release failed: %w", err)
	}
	return nil
}

func (g *noopInflightGuard) Claim(context.Context, string) (bool, error) { return true, nil }

func (g *noopInflightGuard) Release(context.Context, string) error { return nil }
