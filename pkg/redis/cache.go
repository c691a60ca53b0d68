package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a JSON cache under a key prefix
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get loads key into dest. It reports false on a miss or when Redis is disabled.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return true, nil
}

// Set stores value with ttl
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 지표 스냅샷
	TTLMedium = 10 * time.Minute // 종목 프로필
	TTLLong   = 1 * time.Hour    // 재무제표
	TTLDaily  = 24 * time.Hour   // 일봉
)

// SeriesKey identifies a daily price series
func SeriesKey(code string, from, to time.Time) string {
	return fmt.Sprintf("series:%s:%s:%s", code, from.Format("20060102"), to.Format("20060102"))
}

// ProfileKey identifies a stock profile
func ProfileKey(code string) string {
	return fmt.Sprintf("profile:%s", code)
}

// FinancialKey identifies annual statements for a fiscal year range
func FinancialKey(code string, fromYear, toYear int) string {
	return fmt.Sprintf("financial:%s:%d-%d", code, fromYear, toYear)
}
