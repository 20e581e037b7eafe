package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CheckAndSet returns true if the action is allowed for the principal and
// locks it for the given window. Without Redis the limiter is a pass-through.
func CheckAndSet(ctx context.Context, rdb *redis.Client, principalID uuid.UUID, action string, limit time.Duration) (bool, error) {
	if rdb == nil || limit <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("rate_limit:user:%s:%s", principalID.String(), action)

	wasSet, err := rdb.SetNX(ctx, key, "locked", limit).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

// TTL reports how long before the action unlocks for the principal.
func TTL(ctx context.Context, rdb *redis.Client, principalID uuid.UUID, action string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	key := fmt.Sprintf("rate_limit:user:%s:%s", principalID.String(), action)
	return rdb.TTL(ctx, key).Result()
}
