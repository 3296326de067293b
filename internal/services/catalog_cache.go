package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ticket-console/models"
)

// CatalogCache is a read-through Redis cache in front of the event catalog.
// Redis failures fall back to the upstream catalog.
type CatalogCache struct {
	Redis  redis.Cmdable
	next   Catalog
	ttl    time.Duration
	logger *slog.Logger
}

func NewCatalogCache(redisClient redis.Cmdable, next Catalog, ttl time.Duration, logger *slog.Logger) *CatalogCache {
	return &CatalogCache{Redis: redisClient, next: next, ttl: ttl, logger: logger}
}

func catalogKey(eventID string) string {
	return fmt.Sprintf("catalog:event:%s", eventID)
}

func (c *CatalogCache) Event(ctx context.Context, eventID string) (*models.EventDetails, error) {
	key := catalogKey(eventID)

	raw, err := c.Redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var event models.EventDetails
		if err := json.Unmarshal(raw, &event); err == nil {
			return &event, nil
		}
		c.logger.Warn("discarding undecodable catalog cache entry", slog.String("event_id", eventID))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("catalog cache read failed", slog.String("event_id", eventID), slog.Any("error", err))
	}

	event, err := c.next.Event(ctx, eventID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return event, nil
	}
	if err := c.Redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", slog.String("event_id", eventID), slog.Any("error", err))
	}
	return event, nil
}

// Invalidate drops the cached catalog so the next read sees fresh seat counts.
func (c *CatalogCache) Invalidate(ctx context.Context, eventID string) error {
	if err := c.Redis.Del(ctx, catalogKey(eventID)).Err(); err != nil {
		return fmt.Errorf("invalidate catalog %s: %w", eventID, err)
	}
	return nil
}
