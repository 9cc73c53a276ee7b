// Package ratelimit implements C10: the per-target rolling-window rate
// limit a DistributionRule can declare (rate_limit pushes per time_window).
//
// The authoritative count is PushedRecord rows in Postgres (§9: "the limit
// decision is computed from a rolling window over PushedRecord rows, not a
// cached token bucket, so it self-heals after restarts or manual
// backfills"). Redis fronts that count as a sliding-window log so the hot
// path doesn't hit Postgres on every match_and_enqueue call; when a
// target's Redis key is missing (cold cache, fresh Redis instance) it is
// reseeded from PushedRecordRepository before the decision is made, so
// Redis never becomes a second source of truth.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

// slidingWindowScript mirrors the sorted-set sliding-window-log pattern:
// drop entries older than the window, count what's left, and admit the
// new entry only if that count is still under the limit.
var slidingWindowScript = goredis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local member = ARGV[4]
local seed_count = tonumber(ARGV[5])

local window_start = now - window_ms
redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

if redis.call('EXISTS', key) == 0 and seed_count > 0 then
    for i = 1, seed_count do
        redis.call('ZADD', key, window_start, 'seed:' .. i)
    end
end

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('PEXPIRE', key, window_ms)
    return {1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry_ms = window_ms
if oldest and #oldest >= 2 then
    local oldest_time = tonumber(oldest[2])
    retry_ms = (oldest_time + window_ms) - now
    if retry_ms < 0 then retry_ms = 0 end
end
return {0, retry_ms}
`)

// Limiter is the Redis-backed interfaces.RateLimiter.
type Limiter struct {
	client goredis.Cmdable
	pushed interfaces.PushedRecordRepository
}

// New builds the rate limiter. pushed is used only to reseed a cold Redis
// key from the authoritative PushedRecord rows, never as a second store.
func New(client goredis.Cmdable, pushed interfaces.PushedRecordRepository) *Limiter {
	return &Limiter{client: client, pushed: pushed}
}

func (l *Limiter) Allow(ctx context.Context, targetID int64, limit int, window time.Duration) (bool, time.Duration, error) {
	if limit <= 0 || window <= 0 {
		return true, 0, nil
	}

	key := fmt.Sprintf("vaultstream:ratelimit:target:%d", targetID)
	now := time.Now()

	seed, err := l.pushed.CountSince(ctx, targetID, now.Add(-window))
	if err != nil && apperrors.KindOf(err) != apperrors.KindNotFound {
		return false, 0, err
	}

	member := fmt.Sprintf("%d", now.UnixNano())
	result, err := slidingWindowScript.Run(ctx, l.client,
		[]string{key}, limit, window.Milliseconds(), now.UnixMilli(), member, seed,
	).Int64Slice()
	if err != nil {
		return false, 0, apperrors.Wrap(apperrors.KindTransient, "evaluating rate limit", err)
	}

	allowed := result[0] == 1
	retryAfter := time.Duration(result[1]) * time.Millisecond
	return allowed, retryAfter, nil
}

var _ interfaces.RateLimiter = (*Limiter)(nil)
