package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// idem:reserve:{user_id}:{key} -> session_id
	keyIdemReserve = "idem:reserve:%d:%s"

	DefaultIdempotencyTTL = 24 * time.Hour
)

// IdempotencyStore maps client supplied reserve keys to created sessions.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore returns redis-backed store.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func reserveKey(userID int64, key string) string {
	return fmt.Sprintf(keyIdemReserve, userID, key)
}

// Lookup returns the session remembered for key.
func (s *IdempotencyStore) Lookup(ctx context.Context, userID int64, key string) (int64, bool, error) {
	raw, err := s.client.Get(ctx, reserveKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency: corrupt value for %s: %w", key, err)
	}
	return id, true, nil
}

// Remember stores the session for key unless one is already stored.
func (s *IdempotencyStore) Remember(ctx context.Context, userID int64, key string, sessionID int64) error {
	return s.client.SetNX(ctx, reserveKey(userID, key), sessionID, s.ttl).Err()
}
