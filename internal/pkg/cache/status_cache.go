// internal/pkg/cache/status_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fanclash-service/internal/domain/payment"

	"github.com/redis/go-redis/v9"
)

// StatusCache keeps terminal status snapshots in Redis so that mobile
// clients polling aggressively do not hit Postgres on every request.
// Postgres remains the source of truth; a cache miss just falls through.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

func (c *StatusCache) key(checkoutID string) string {
	return fmt.Sprintf("payment:status:%s", checkoutID)
}

// Put stores a snapshot keyed by CheckoutRequestID.
func (c *StatusCache) Put(ctx context.Context, checkoutID string, snap *payment.StatusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal status snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key(checkoutID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache status: %w", err)
	}
	return nil
}

// Get retrieves a cached snapshot. Returns (nil, nil) on a miss.
func (c *StatusCache) Get(ctx context.Context, checkoutID string) (*payment.StatusSnapshot, error) {
	data, err := c.client.Get(ctx, c.key(checkoutID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status cache: %w", err)
	}

	var snap payment.StatusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status snapshot: %w", err)
	}
	return &snap, nil
}
