package statestore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the alternative STATE_STORE backend: each key/value pair
// is a plain Redis string, namespaced under a fixed prefix so the
// provisioning keyspace does not collide with other tenants of the same
// Redis instance.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a RedisStore against addr, selecting db and using
// password (empty for none). Keys are namespaced under "slidegen:state:".
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		prefix: "slidegen:state:",
	}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

// Get returns the value stored under key, if any.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key with no expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
