package taskqueue

import (
	"math"
	"math/rand"
	"time"

	"github.com/hibiken/asynq"
)

const (
	baseDelay = time.Second
	capDelay  = 5 * time.Minute
	jitterPct = 0.2
)

// RetryDelay implements the §4.3 backoff policy: exponential with base 1s,
// capped at 5 minutes, with ±20% jitter so a burst of failures doesn't
// retry in lockstep against the same downstream dependency.
func RetryDelay(n int, err error, task *asynq.Task) time.Duration {
	exp := math.Pow(2, float64(n))
	delay := time.Duration(exp) * baseDelay
	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	jitter := 1 + (rand.Float64()*2-1)*jitterPct
	return time.Duration(float64(delay) * jitter)
}
