package store

import (
	"context"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/redis"
)

// PriceCache is a read-through Redis cache in front of a price source.
// A cache failure falls back to the source.
type PriceCache struct {
	src    contracts.PriceSource
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewPriceCache wraps src. ttl <= 0 uses one day.
func NewPriceCache(src contracts.PriceSource, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *PriceCache {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PriceCache{src: src, cache: cache, ttl: ttl, logger: log.WithComponent("price-cache")}
}

// FetchSeries implements contracts.PriceSource
func (c *PriceCache) FetchSeries(ctx context.Context, code string, from, to time.Time) (*contracts.Series, error) {
	key := redis.SeriesKey(code, from, to)

	var cached contracts.Series
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).WithField("code", code).Warn("cache read failed")
	}
	if hit {
		return &cached, nil
	}

	s, err := c.src.FetchSeries(ctx, code, from, to)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, s, c.ttl); err != nil {
		c.logger.WithError(err).WithField("code", code).Warn("cache write failed")
	}
	return s, nil
}

// FinancialCache is the same read-through cache for annual statements
type FinancialCache struct {
	src    contracts.FinancialSource
	cache  *redis.Cache
	logger *logger.Logger
}

// NewFinancialCache wraps src with a one-hour TTL
func NewFinancialCache(src contracts.FinancialSource, cache *redis.Cache, log *logger.Logger) *FinancialCache {
	if log == nil {
		log = logger.Nop()
	}
	return &FinancialCache{src: src, cache: cache, logger: log.WithComponent("financial-cache")}
}

// FetchFinancials implements contracts.FinancialSource
func (c *FinancialCache) FetchFinancials(ctx context.Context, code string, fromYear, toYear int) ([]contracts.Financials, error) {
	key := redis.FinancialKey(code, fromYear, toYear)

	var cached []contracts.Financials
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).WithField("code", code).Warn("cache read failed")
	}
	if hit {
		return cached, nil
	}

	fs, err := c.src.FetchFinancials(ctx, code, fromYear, toYear)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, fs, redis.TTLLong); err != nil {
		c.logger.WithError(err).WithField("code", code).Warn("cache write failed")
	}
	return fs, nil
}
