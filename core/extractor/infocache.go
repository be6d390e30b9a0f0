package extractor

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"echofm/logger"
	"echofm/model"
)

// Cached decorates an Extractor with a Redis-backed cache for metadata
// lookups. Downloads always go straight through. A nil client disables
// caching entirely, so the service runs fine without Redis.
type Cached struct {
	inner Extractor
	rdb   *redis.Client
	ttl   time.Duration
}

// WithInfoCache wraps inner with an info cache. rdb may be nil.
func WithInfoCache(inner Extractor, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{inner: inner, rdb: rdb, ttl: ttl}
}

func infoKey(url string) string {
	return fmt.Sprintf("echofm:info:%x", md5.Sum([]byte(url)))
}

// ExtractInfo serves cached metadata when available. Cache failures are logged
// and treated as misses.
func (c *Cached) ExtractInfo(ctx context.Context, url string) (*Result, error) {
	if c.rdb == nil {
		return c.inner.ExtractInfo(ctx, url)
	}

	key := infoKey(url)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var res Result
		if err := json.Unmarshal(raw, &res); err == nil {
			return &res, nil
		}
		// Stale or corrupt entry, drop it and re-extract.
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		logger.Warn("info cache read failed", logger.ErrorField(err))
	}

	res, err := c.inner.ExtractInfo(ctx, url)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(res); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			logger.Warn("info cache write failed", logger.ErrorField(err))
		}
	}
	return res, nil
}

// Download passes through to the wrapped extractor.
func (c *Cached) Download(ctx context.Context, url, dest, quality string) (*model.TrackInfo, error) {
	return c.inner.Download(ctx, url, dest, quality)
}
