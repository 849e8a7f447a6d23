package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRedisLimiter connects to REDIS_ADDR or skips the test.
func newRedisLimiter(t *testing.T, limit int, window, cooldown time.Duration) *Limiter {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}

	l := NewLimiter(client, limit, window, cooldown)
	l.keyPrefix = "users-api-test:" + uuid.NewString() + ":"
	return l
}

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(nil, 5, time.Minute, time.Second)

	require.NotNil(t, l)
	assert.Equal(t, 5, l.limit)
	assert.Equal(t, time.Minute, l.window)
	assert.Equal(t, "users-api:ratelimit:", l.keyPrefix)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var n Noop

	for range 100 {
		res, err := n.AllowIP(ctx, "127.0.0.1", "login")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Zero(t, res.Limit)
	}

	ok, err := n.AcquireEmailCooldown(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_AllowIP_Integration(t *testing.T) {
	l := newRedisLimiter(t, 3, time.Minute, time.Minute)
	ctx := context.Background()

	for i := range 3 {
		res, err := l.AllowIP(ctx, "10.0.0.1", "login")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.AllowIP(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.ResetAt.After(time.Now()))

	// purposes and addresses are counted separately
	res, err = l.AllowIP(ctx, "10.0.0.1", "register")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.AllowIP(ctx, "10.0.0.2", "login")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_Allow_ReportsRemaining(t *testing.T) {
	l := newRedisLimiter(t, 2, time.Minute, time.Minute)
	ctx := context.Background()

	res, err := l.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	_, err = l.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)

	res, err = l.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.ResetAt.After(time.Now()))
}

func TestLimiter_EmailCooldown_Integration(t *testing.T) {
	l := newRedisLimiter(t, 3, time.Minute, time.Minute)
	ctx := context.Background()

	ok, err := l.AcquireEmailCooldown(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.AcquireEmailCooldown(ctx, "A@X.com")
	require.NoError(t, err)
	assert.False(t, ok)
}
