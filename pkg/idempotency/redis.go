package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the guard with a shared Redis instance so multiple
// replicas of the write path agree on which keys were processed. SET NX gives
// the atomic check-and-mark.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

func (s *RedisStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (s *RedisStore) MarkProcessed(ctx context.Context, key string) error {
	return s.client.Set(ctx, s.key(key), 1, s.ttl).Err()
}

func (s *RedisStore) CheckAndMark(ctx context.Context, key string) (bool, error) {
	set, err := s.client.SetNX(ctx, s.key(key), 1, s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !set, nil
}

func (s *RedisStore) Forget(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
