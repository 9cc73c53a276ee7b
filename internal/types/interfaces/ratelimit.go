package interfaces

import (
	"context"
	"time"
)

// RateLimiter implements the §9 design note: the limit decision is computed
// from a rolling window over PushedRecord rows, not a cached token bucket,
// so the limit self-heals after process restarts or manual backfills (C10).
type RateLimiter interface {
	// Allow reports whether targetID may receive one more push right now
	// under the given limit/window, and if not, how long until it may.
	Allow(ctx context.Context, targetID int64, limit int, window time.Duration) (ok bool, retryAfter time.Duration, err error)
}
