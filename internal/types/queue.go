package types

import "time"

// QueueItemStatus is the lifecycle status of a ContentQueueItem (§3).
type QueueItemStatus string

const (
	QueueStatusPending    QueueItemStatus = "pending"
	QueueStatusScheduled  QueueItemStatus = "scheduled"
	QueueStatusProcessing QueueItemStatus = "processing"
	QueueStatusSuccess    QueueItemStatus = "success"
	QueueStatusFailed     QueueItemStatus = "failed"
	QueueStatusSkipped    QueueItemStatus = "skipped"
	QueueStatusCanceled   QueueItemStatus = "canceled"
)

// IsTerminal reports whether a status never transitions again except via an
// explicit retry creating a fresh attempt (§3 invariant).
func (s QueueItemStatus) IsTerminal() bool {
	switch s {
	case QueueStatusSuccess, QueueStatusFailed, QueueStatusSkipped, QueueStatusCanceled:
		return true
	default:
		return false
	}
}

// IsLive reports whether a status counts toward the "at most one live item
// per (content,target)" invariant (§8 property 3).
func (s QueueItemStatus) IsLive() bool {
	return s == QueueStatusScheduled || s == QueueStatusProcessing
}

// StatsBucket is the logical status grouping exposed by stats() (§4.7).
type StatsBucket string

const (
	BucketWillPush      StatsBucket = "will_push"
	BucketFiltered      StatsBucket = "filtered"
	BucketPendingReview StatsBucket = "pending_review"
	BucketPushed        StatsBucket = "pushed"
)

// Bucket maps a queue item's internal status to its external stats bucket.
func (s QueueItemStatus) Bucket(needsApproval bool) StatsBucket {
	switch s {
	case QueueStatusPending:
		if needsApproval {
			return BucketPendingReview
		}
		return BucketWillPush
	case QueueStatusScheduled, QueueStatusProcessing:
		return BucketWillPush
	case QueueStatusSuccess:
		return BucketPushed
	case QueueStatusFailed, QueueStatusSkipped, QueueStatusCanceled:
		return BucketFiltered
	default:
		return BucketFiltered
	}
}

// ContentQueueItem is the triplet (content, rule, target) queue row — the
// heart of C7 (§3).
type ContentQueueItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentID int64 `gorm:"not null;uniqueIndex:uniq_triplet;index:idx_queue_content" json:"content_id"`
	RuleID    int64 `gorm:"not null;uniqueIndex:uniq_triplet" json:"rule_id"`
	BotChatID int64 `gorm:"not null;uniqueIndex:uniq_triplet;index:idx_queue_target" json:"bot_chat_id"`

	Status QueueItemStatus `gorm:"size:16;not null;default:pending;index:idx_queue_claim" json:"status"`

	ScheduledAt   *time.Time `gorm:"index:idx_queue_claim" json:"scheduled_at,omitempty"`
	Priority      int        `gorm:"not null;default:0;index:idx_queue_claim" json:"priority"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`

	AttemptCount int        `gorm:"not null;default:0" json:"attempt_count"`
	MaxAttempts  int        `gorm:"not null;default:3" json:"max_attempts"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
	LockedBy     string     `gorm:"size:64" json:"locked_by,omitempty"`

	MessageID       string `json:"message_id,omitempty"`
	RenderedPayload JSON   `gorm:"type:jsonb" json:"rendered_payload,omitempty"`

	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	LastErrorType ErrorKind  `gorm:"size:16" json:"last_error_type,omitempty"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	NeedsApproval     bool       `gorm:"not null;default:false" json:"needs_approval"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	ApprovedBy        string     `json:"approved_by,omitempty"`
	NSFWRoutingResult string     `gorm:"size:32" json:"nsfw_routing_result,omitempty"`
	PassedRateLimit   bool       `gorm:"not null;default:true" json:"passed_rate_limit"`
	RateLimitReason   string     `gorm:"type:text" json:"rate_limit_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PushedRecord is the deduplication + audit row (§3).
type PushedRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentID int64  `gorm:"not null;uniqueIndex:uniq_content_target" json:"content_id"`
	TargetID  int64  `gorm:"not null;uniqueIndex:uniq_content_target;index:idx_pushed_target_time" json:"target_id"`
	MessageID string `json:"message_id"`

	PushStatus   string `gorm:"size:16;not null;default:success" json:"push_status"`
	PushedAt     time.Time `gorm:"index:idx_pushed_target_time" json:"pushed_at"`
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reopened implements §3/§9's dedup-bypass rule: a PushedRecord only blocks
// re-push when the content has not been re-approved since the push.
func (r *PushedRecord) Reopened(reviewedAt *time.Time) bool {
	return reviewedAt != nil && reviewedAt.After(r.PushedAt)
}
