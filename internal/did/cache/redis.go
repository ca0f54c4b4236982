package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"anchorid/internal/did/models"
	"anchorid/internal/platform/logger"
)

const keyPrefix = "anchorid:resolution:"

// Redis caches resolutions in Redis with a TTL. Cache errors degrade to
// misses; the store remains the source of truth.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedis(client redis.Cmdable, ttl time.Duration, log *slog.Logger) *Redis {
	if log == nil {
		log = logger.Discard()
	}
	return &Redis{client: client, ttl: ttl, log: log}
}

func (c *Redis) Get(ctx context.Context, did string) (models.Resolution, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+did).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("resolution cache get failed", "did", did, "error", err)
		}
		return models.Resolution{}, false
	}
	var res models.Resolution
	if err := json.Unmarshal(raw, &res); err != nil {
		c.log.Warn("resolution cache entry corrupt", "did", did, "error", err)
		return models.Resolution{}, false
	}
	return res, true
}

func (c *Redis) Set(ctx context.Context, did string, res models.Resolution) {
	raw, err := json.Marshal(res)
	if err != nil {
		c.log.Warn("resolution cache marshal failed", "did", did, "error", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+did, raw, c.ttl).Err(); err != nil {
		c.log.Warn("resolution cache set failed", "did", did, "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, did string) {
	if err := c.client.Del(ctx, keyPrefix+did).Err(); err != nil {
		c.log.Warn("resolution cache invalidate failed", "did", did, "error", err)
	}
}
