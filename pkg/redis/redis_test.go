package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromRedis(rdb), mr
}

func TestNew_Disabled(t *testing.T) {
	client, err := New(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestNew_Enabled(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{Redis: config.RedisConfig{
		Enabled: true,
		Host:    mr.Host(),
		Port:    mr.Port(),
	}}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()
	assert.True(t, client.Enabled())
}

func TestCache_RoundTrip(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, "quantlab")
	ctx := context.Background()

	type profile struct {
		Code      string  `json:"code"`
		Liquidity string  `json:"liquidity"`
		VolScore  float64 `json:"vol_score"`
	}

	var got profile
	found, err := cache.Get(ctx, ProfileKey("005930"), &got)
	require.NoError(t, err)
	assert.False(t, found, "miss before Set")

	want := profile{Code: "005930", Liquidity: "초대형", VolScore: 0.31}
	require.NoError(t, cache.Set(ctx, ProfileKey("005930"), want, TTLMedium))
	assert.True(t, mr.Exists("quantlab:cache:profile:005930"))

	found, err = cache.Get(ctx, ProfileKey("005930"), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	mr.FastForward(TTLMedium + time.Second)
	found, err = cache.Get(ctx, ProfileKey("005930"), &got)
	require.NoError(t, err)
	assert.False(t, found, "expired")

	require.NoError(t, cache.Set(ctx, "k", 1, TTLShort))
	require.NoError(t, cache.Delete(ctx, "k"))
	assert.False(t, mr.Exists("quantlab:cache:k"))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "quantlab")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", TTLShort))
	var v string
	found, err := cache.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client, "quantlab")
	ctx := context.Background()
	cfg := RateLimitConfig{Key: "test", Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		allowed, remaining, err := limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, remaining, err := limiter.Allow(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "quantlab")

	allowed, remaining, err := limiter.Allow(context.Background(), NaverRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, NaverRateLimit.Limit, remaining)
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client, "quantlab")
	cfg := RateLimitConfig{Key: "wait", Limit: 1, Window: time.Minute}

	require.NoError(t, limiter.Wait(context.Background(), cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, limiter.Wait(ctx, cfg), context.DeadlineExceeded)
}
