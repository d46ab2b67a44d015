package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"spiceportal/internal/platform/redis"
	"spiceportal/pkg/sentinel"
)

const tokenKeyPrefix = "spiceportal:upstream-token:"

// RedisTokenStore keeps upstream tokens in Redis so sessions survive portal
// restarts and are shared across replicas.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Save(ctx context.Context, sessionID, upstreamToken string, ttl time.Duration) error {
	if err := s.client.Set(ctx, tokenKeyPrefix+sessionID, upstreamToken, ttl).Err(); err != nil {
		return fmt.Errorf("save upstream token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Get(ctx context.Context, sessionID string) (string, error) {
	val, err := s.client.Get(ctx, tokenKeyPrefix+sessionID).Result()
	if errors.Is(err, goredis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load upstream token: %w", err)
	}
	return val, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, tokenKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete upstream token: %w", err)
	}
	return nil
}
