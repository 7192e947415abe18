package funnel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultStatusTTL = 5 * time.Minute

// StatusCache keeps the per-source sync status projection in Redis so the
// status endpoint doesn't hit Postgres on every poll. All methods are
// nil-receiver safe; a nil cache disables caching.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}
	return &StatusCache{client: client, ttl: ttl}
}

func statusKey(st SourceType) string {
	return fmt.Sprintf("signup-sync:status:%s", st)
}

// Get returns the cached projection, or (nil, nil) on a miss.
func (c *StatusCache) Get(ctx context.Context, st SourceType) (*SyncStatus, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, statusKey(st)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("funnel: status cache get: %w", err)
	}
	var status SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("funnel: decode cached status: %w", err)
	}
	return &status, nil
}

func (c *StatusCache) Set(ctx context.Context, status *SyncStatus) error {
	if c == nil || status == nil {
		return nil
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("funnel: encode status: %w", err)
	}
	if err := c.client.Set(ctx, statusKey(status.SourceType), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("funnel: status cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached projection after a run commits.
func (c *StatusCache) Invalidate(ctx context.Context, st SourceType) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, statusKey(st)).Err()
}
