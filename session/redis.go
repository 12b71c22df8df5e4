package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStorage stores keys as namespace:key so several storefront profiles can share one
// redis database.
type RedisStorage struct {
	client    *redis.Client
	namespace string
}

func NewRedisStorage(client *redis.Client, namespace string) *RedisStorage {
	return &RedisStorage{client: client, namespace: namespace}
}

func (s *RedisStorage) key(key string) string {
	if s.namespace == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", s.namespace, key)
}

func (s *RedisStorage) Get(c context.Context, key string) (string, error) {
	value, err := s.client.Get(c, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed getting session key with error=%w", err)
	}
	return value, nil
}

func (s *RedisStorage) Set(c context.Context, key string, value string) error {
	if err := s.client.Set(c, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed setting session key with error=%w", err)
	}
	return nil
}

func (s *RedisStorage) Delete(c context.Context, key string) error {
	if err := s.client.Del(c, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed deleting session key with error=%w", err)
	}
	return nil
}
