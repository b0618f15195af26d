package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "smsctl"

// RedisSeenStore shares seen keys through Redis. Keys are scoped to a
// single run so a restarted monitor starts with an empty history.
type RedisSeenStore struct {
	rdb   *redis.Client
	ttl   time.Duration
	runID string
}

func NewRedisSeenStore(rdb *redis.Client, ttl time.Duration) *RedisSeenStore {
	return &RedisSeenStore{rdb: rdb, ttl: ttl, runID: uuid.NewString()}
}

func (c *RedisSeenStore) RunID() string { return c.runID }

func (c *RedisSeenStore) key(k string) string {
	return fmt.Sprintf("%s:%s:seen:%s", keyPrefix, c.runID, k)
}

func (c *RedisSeenStore) MarkSeen(ctx context.Context, key string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, c.key(key), time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark seen %q: %w", key, err)
	}
	return ok, nil
}

func (c *RedisSeenStore) Forget(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("forget %q: %w", key, err)
	}
	return nil
}
