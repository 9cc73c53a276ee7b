package interfaces

import (
	"context"
	"time"

	"github.com/vaultstream/vaultstream/internal/types"
)

// QueueRepository persists ContentQueueItem rows and implements the atomic
// claim/lease semantics C7/C8 depend on (§3, §8 property 3).
type QueueRepository interface {
	Upsert(ctx context.Context, item *types.ContentQueueItem) error
	Get(ctx context.Context, id int64) (*types.ContentQueueItem, error)
	List(ctx context.Context, f QueueFilter) ([]types.ContentQueueItem, int64, error)

	// ClaimDue atomically transitions up to limit due, unlocked items from
	// scheduled to processing, stamping locked_by/locked_at, and returns them.
	ClaimDue(ctx context.Context, now time.Time, lockedBy string, limit int) ([]types.ContentQueueItem, error)

	// ReleaseExpiredLocks reclaims items whose lock has exceeded the lease
	// TTL without completing, returning them to scheduled.
	ReleaseExpiredLocks(ctx context.Context, olderThan time.Time) (int64, error)

	MarkSuccess(ctx context.Context, id int64, messageID string) error
	MarkFailed(ctx context.Context, id int64, errKind types.ErrorKind, errMsg string, nextAttemptAt *time.Time) error
	MarkSkipped(ctx context.Context, id int64, reason string) error
	Cancel(ctx context.Context, id int64) error
	Approve(ctx context.Context, id int64, by string) error

	// Reorder persists a fresh, evenly-spaced priority ordering for every id
	// given, in the order given — the full renumber the periodic
	// renormalization sweep runs; reorder()'s own gap-exhaustion fallback
	// renumbers through SetPriority instead (§8 property: reorder index
	// stability).
	Reorder(ctx context.Context, ids []int64) error

	// SetPriority is the common-case single-item move: it slots one item's
	// priority to a specific value without touching any other row.
	SetPriority(ctx context.Context, id int64, priority int) error

	Stats(ctx context.Context) (map[types.StatsBucket]int64, error)

	// ListByContentID returns every queue item for one content row, used by
	// schedule/push_now/merge_group which act across all of a content's
	// (rule, target) rows at once (§4.7).
	ListByContentID(ctx context.Context, contentID int64) ([]types.ContentQueueItem, error)

	// SetSchedule sets scheduled_at on every pending|scheduled item for a
	// content row (§4.7 schedule).
	SetSchedule(ctx context.Context, contentID int64, at time.Time) error

	// PushNow jumps one item to the front of the claim order (§4.7 push_now).
	PushNow(ctx context.Context, id int64) error

	// Retry resets a terminal item back to scheduled with a fresh attempt
	// budget (§4.7 retry).
	Retry(ctx context.Context, id int64) error
}

// QueueFilter captures the list parameters of GET /api/queue (§6).
type QueueFilter struct {
	Status    types.QueueItemStatus
	ContentID int64
	RuleID    int64
	BotChatID int64
	Offset    int
	Limit     int
}

// PushedRecordRepository persists the dedup/audit table (§3, §8 property 1).
type PushedRecordRepository interface {
	Create(ctx context.Context, r *types.PushedRecord) error
	Get(ctx context.Context, contentID, targetID int64) (*types.PushedRecord, error)
	CountSince(ctx context.Context, targetID int64, since time.Time) (int64, error)
	ListForTargetSince(ctx context.Context, targetID int64, since time.Time) ([]types.PushedRecord, error)
}
