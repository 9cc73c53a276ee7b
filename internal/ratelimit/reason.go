package ratelimit

import (
	"fmt"
	"time"
)

// Reason formats the human-readable rate_limit_reason stored on a
// ContentQueueItem when a push was deferred instead of sent immediately.
func Reason(limit int, window time.Duration) string {
	return fmt.Sprintf("rate limit exceeded: max %d pushes per %s", limit, window)
}
