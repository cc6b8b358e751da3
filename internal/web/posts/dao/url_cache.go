package dao

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/singleflight"

	redisDB "github.com/mohamadflefel/JCCAdmin/library/db/redis"
)

const resolveTimeout = 30 * time.Second

type imageResolver interface {
	ResolveImageURL(ctx context.Context, ref string) (string, error)
}

type stringCache interface {
	GetString(ctx context.Context, key string) (val string, ok bool, err error)
	SetString(ctx context.Context, key, val string, ttl time.Duration) error
}

// URLCache caches resolved image urls in redis.
// Concurrent misses of the same reference share one resolution.
type URLCache struct {
	logger logSDK.Logger
	next   imageResolver
	cache  stringCache
	ttl    time.Duration
	sf     singleflight.Group
}

// NewURLCache wraps next. ttl must be shorter than the lifetime of the urls next returns.
func NewURLCache(logger logSDK.Logger, next imageResolver, cache stringCache, ttl time.Duration) *URLCache {
	return &URLCache{
		logger: logger,
		next:   next,
		cache:  cache,
		ttl:    ttl,
	}
}

// ResolveImageURL returns the cached url of ref, resolving it on a miss.
// Cache failures fall through to next.
func (c *URLCache) ResolveImageURL(ctx context.Context, ref string) (string, error) {
	key := redisDB.KeyPrefixImageURL + ref
	url, ok, err := c.cache.GetString(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("read image url cache", zap.String("ref", ref), zap.Error(err))
	case ok:
		return url, nil
	}

	// the flight outlives any single caller, so it must not inherit their cancellation
	ch := c.sf.DoChan(ref, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()

		url, err := c.next.ResolveImageURL(flightCtx, ref)
		if err != nil {
			return "", err
		}

		if err := c.cache.SetString(flightCtx, key, url, c.ttl); err != nil {
			c.logger.Warn("write image url cache", zap.String("ref", ref), zap.Error(err))
		}
		return url, nil
	})

	select {
	case <-ctx.Done():
		return "", errors.Wrapf(ctx.Err(), "resolve image `%s`", ref)
	case res := <-ch:
		if res.Err != nil {
			return "", errors.Wrapf(res.Err, "resolve image `%s`", ref)
		}

		return res.Val.(string), nil
	}
}
