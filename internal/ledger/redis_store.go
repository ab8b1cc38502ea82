package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the ledger as a Redis list, one element per line.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Lines(ctx context.Context) ([]string, error) {
	lines, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", s.key, err)
	}
	return lines, nil
}

func (s *RedisStore) AppendLine(ctx context.Context, line string) error {
	if err := s.client.RPush(ctx, s.key, line).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", s.key, err)
	}
	return nil
}
