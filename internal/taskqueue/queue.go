// Package taskqueue wraps hibiken/asynq as C3's durable task queue: parse
// and distribute tasks are enqueued here and consumed by cmd/worker,
// surviving process restarts because the queue lives in Redis, not memory.
package taskqueue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
)

// Task type names, matching the §4.3/§4.5 pipeline stages.
const (
	TaskParseContent  = "content:parse"
	TaskDistribute    = "content:distribute"
	TaskPushQueueItem = "queue:push"
)

// ParseContentPayload is the asynq.Task payload for TaskParseContent.
type ParseContentPayload struct {
	ContentID int64  `json:"content_id"`
	URL       string `json:"url"`
}

// DistributePayload is the asynq.Task payload for TaskDistribute.
type DistributePayload struct {
	ContentID int64 `json:"content_id"`
}

// PushQueueItemPayload is the asynq.Task payload for TaskPushQueueItem.
type PushQueueItemPayload struct {
	QueueItemID int64 `json:"queue_item_id"`
}

// Client enqueues tasks onto the durable queue.
type Client struct {
	inner *asynq.Client
}

// NewClient builds a Client connected to redisAddr.
func NewClient(redisAddr, password string, db int) *Client {
	return &Client{inner: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr, Password: password, DB: db})}
}

func (c *Client) Close() error { return c.inner.Close() }

// EnqueueParseContent schedules a parse task for a freshly-ingested content row.
func (c *Client) EnqueueParseContent(ctx context.Context, p ParseContentPayload) error {
	return c.enqueue(ctx, TaskParseContent, p, asynq.MaxRetry(5))
}

// EnqueueDistribute schedules a match/distribute task once parsing succeeds.
func (c *Client) EnqueueDistribute(ctx context.Context, p DistributePayload) error {
	return c.enqueue(ctx, TaskDistribute, p, asynq.MaxRetry(3))
}

// EnqueuePushQueueItem schedules an immediate push attempt for a queue item
// that became due outside the poller's normal cadence (e.g. a manual retry).
func (c *Client) EnqueuePushQueueItem(ctx context.Context, p PushQueueItemPayload) error {
	return c.enqueue(ctx, TaskPushQueueItem, p, asynq.MaxRetry(5))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "marshaling task payload", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.inner.EnqueueContext(ctx, task, opts...); err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "enqueuing task", err)
	}
	return nil
}

// NewServer builds the asynq consumer server with the given concurrency and
// retry delay function (§4.3: exponential backoff with jitter, see retry.go).
func NewServer(redisAddr, password string, db, concurrency int) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr, Password: password, DB: db},
		asynq.Config{
			Concurrency:    concurrency,
			RetryDelayFunc: RetryDelay,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)
}
