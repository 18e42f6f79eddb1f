package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores each session as JSON at "<prefix><refreshToken>" with a
// TTL matching its expiry, and indexes a user's tokens in the set
// "<prefix>user:<username>" so they can be revoked together.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-backed session repository. Prefix defaults to "wiki:session:".
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "wiki:session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(refresh string) string {
	return r.prefix + refresh
}

func (r *RedisRepository) userKey(username string) string {
	return r.prefix + "user:" + username
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(s.RefreshToken), b, ttl)
		pipe.SAdd(ctx, r.userKey(s.Username), s.RefreshToken)
		// sessions share one TTL, so the newest one outlives the rest
		pipe.Expire(ctx, r.userKey(s.Username), ttl)
		return nil
	})
	return err
}

func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	b, err := r.client.Get(ctx, r.key(refresh)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if time.Now().UTC().After(s.ExpiresAt) {
		_ = r.DeleteByRefresh(ctx, refresh)
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	b, err := r.client.Get(ctx, r.key(refresh)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	var s Session
	_ = json.Unmarshal(b, &s)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(refresh))
		if s.Username != "" {
			pipe.SRem(ctx, r.userKey(s.Username), refresh)
		}
		return nil
	})
	return err
}

func (r *RedisRepository) DeleteByUsername(ctx context.Context, username string) (int, error) {
	tokens, err := r.client.SMembers(ctx, r.userKey(username)).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, r.key(t))
	}
	var removed *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			removed = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, r.userKey(username))
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed == nil {
		return 0, nil
	}
	return int(removed.Val()), nil
}
