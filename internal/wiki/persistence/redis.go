package persistence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter stores each record as a plain string value under "<prefix><name>".
// Records never expire.
type RedisAdapter struct {
	client *redis.Client
	prefix string
}

// NewRedisAdapter creates a Redis-backed adapter. Prefix may be empty.
func NewRedisAdapter(client *redis.Client, prefix string) *RedisAdapter {
	if prefix == "" {
		prefix = "wiki:record:"
	}
	return &RedisAdapter{client: client, prefix: prefix}
}

func (r *RedisAdapter) key(name string) string {
	return r.prefix + name
}

func (r *RedisAdapter) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(name)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("redis load %s: %w", name, err)
	}
	return b, nil
}

func (r *RedisAdapter) Save(ctx context.Context, name string, data []byte) error {
	if err := r.client.Set(ctx, r.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("redis save %s: %w", name, err)
	}
	return nil
}
