// Package ratelimit throttles abusive callers of the public account
// endpoints with a redis sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set. INCR provides unique members.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)

	if current < limit then
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':counter', expire_seconds)
		return {1, limit - current - 1, 0}
	else
		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		local reset_at = 0
		if oldest and #oldest >= 2 then
			reset_at = tonumber(oldest[2]) + window_ms
		end
		return {0, 0, reset_at}
	end
`)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// Limiter implements sliding window rate limiting using Redis.
type Limiter struct {
	client        *redis.Client
	keyPrefix     string
	limit         int
	window        time.Duration
	emailCooldown time.Duration
}

func NewLimiter(client *redis.Client, limit int, window, emailCooldown time.Duration) *Limiter {
	return &Limiter{
		client:        client,
		keyPrefix:     "users-api:ratelimit:",
		limit:         limit,
		window:        window,
		emailCooldown: emailCooldown,
	}
}

// Allow checks whether one more request under key fits in the window.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := time.Now()
	windowStart := now.Add(-window)

	redisKey := l.keyPrefix + key

	nowMs := now.UnixMilli()
	result, err := slidingWindow.Run(ctx, l.client, []string{redisKey}, nowMs, windowStart.UnixMilli(), limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis script error: %w", err)
	}

	if len(result) != 3 {
		return nil, fmt.Errorf("unexpected Redis response length: %d", len(result))
	}

	resetAt := now.Add(window)
	if result[2] > 0 {
		resetAt = time.UnixMilli(result[2])
	}

	return &Result{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   resetAt,
		Limit:     limit,
	}, nil
}

// AllowIP records one request from ip for purpose (login, register, ...)
// against the configured limit.
func (l *Limiter) AllowIP(ctx context.Context, ip, purpose string) (*Result, error) {
	return l.Allow(ctx, "ip:"+purpose+":"+ip, l.limit, l.window)
}

// AcquireEmailCooldown claims the mail cooldown slot for email. It returns
// false while a previous claim has not expired.
func (l *Limiter) AcquireEmailCooldown(ctx context.Context, email string) (bool, error) {
	key := l.keyPrefix + "email:" + strings.ToLower(email)

	ok, err := l.client.SetNX(ctx, key, 1, l.emailCooldown).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return ok, nil
}

// Noop allows everything. It is used when rate limiting is disabled.
type Noop struct{}

// AllowIP always allows. Limit is zero, so no rate limit headers are sent.
func (Noop) AllowIP(context.Context, string, string) (*Result, error) {
	return &Result{Allowed: true}, nil
}

func (Noop) AcquireEmailCooldown(context.Context, string) (bool, error) { return true, nil }
