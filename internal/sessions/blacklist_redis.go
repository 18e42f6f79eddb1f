package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// package-level Redis client used for token blacklist (optional)
var blacklistClient *redis.Client

// process-local fallback used when no Redis client is configured
var (
	localMu        sync.Mutex
	localBlacklist = map[string]time.Time{}
)

// SetBlacklistClient configures the Redis client used for blacklist operations.
// With nil, revoked tokens are tracked in process memory instead.
func SetBlacklistClient(c *redis.Client) {
	blacklistClient = c
}

func blacklistKey(token string) string { return "blacklist:access:" + token }

// BlacklistAccessToken revokes the given access token for ttl.
func BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	if blacklistClient == nil {
		localMu.Lock()
		defer localMu.Unlock()
		now := time.Now()
		for k, exp := range localBlacklist {
			if now.After(exp) {
				delete(localBlacklist, k)
			}
		}
		localBlacklist[token] = now.Add(ttl)
		return nil
	}
	return blacklistClient.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

// IsAccessTokenBlacklisted returns true when the token has been revoked and the revocation
// has not expired.
func IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	if blacklistClient == nil {
		localMu.Lock()
		defer localMu.Unlock()
		exp, ok := localBlacklist[token]
		return ok && time.Now().Before(exp), nil
	}
	exists, err := blacklistClient.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
