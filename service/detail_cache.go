package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orgdir/core"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DetailCache caches organization cards in Redis. It is a read-through cache:
// every error degrades to a miss so Redis outages never fail a request.
type DetailCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewDetailCache creates a Redis-backed organization detail cache
func NewDetailCache(client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *DetailCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DetailCache{client: client, ttl: ttl, logger: logger}
}

func detailKey(id int64) string {
	return fmt.Sprintf("orgdir:organization:%d", id)
}

// Get returns a cached organization card, or false on miss or error
func (c *DetailCache) Get(ctx context.Context, id int64) (*core.OrganizationDetail, bool) {
	data, err := c.client.Get(ctx, detailKey(id)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warnw("Detail cache read failed", "id", id, "error", err)
		return nil, false
	}

	var detail core.OrganizationDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		c.logger.Warnw("Detail cache entry corrupt, dropping", "id", id, "error", err)
		c.client.Del(ctx, detailKey(id))
		return nil, false
	}
	return &detail, true
}

// Set stores an organization card with the configured TTL
func (c *DetailCache) Set(ctx context.Context, id int64, detail *core.OrganizationDetail) {
	data, err := json.Marshal(detail)
	if err != nil {
		c.logger.Warnw("Detail cache marshal failed", "id", id, "error", err)
		return
	}
	if err := c.client.Set(ctx, detailKey(id), data, c.ttl).Err(); err != nil {
		c.logger.Warnw("Detail cache write failed", "id", id, "error", err)
	}
}

// Invalidate removes a cached organization card
func (c *DetailCache) Invalidate(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, detailKey(id)).Err(); err != nil {
		c.logger.Warnw("Detail cache invalidation failed", "id", id, "error", err)
	}
}
