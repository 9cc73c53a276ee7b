package types

import "time"

// EventType enumerates the real-time events emitted onto the event bus (§4.2).
type EventType string

const (
	EventContentIngested    EventType = "content_ingested"
	EventContentParsed      EventType = "content_parsed"
	EventContentParseFailed EventType = "content_parse_failed"
	EventContentReviewed    EventType = "content_reviewed"
	EventQueueItemCreated   EventType = "queue_item_created"
	EventQueueUpdated       EventType = "queue_updated"
	EventPushSucceeded      EventType = "distribution_push_success"
	EventPushFailed         EventType = "distribution_push_failed"
	EventContentPushed      EventType = "content_pushed"
	EventBotHealthChanged   EventType = "bot_health_changed"
	EventBotSyncProgress    EventType = "bot_sync_progress"
	EventBotSyncCompleted   EventType = "bot_sync_completed"
	EventRateLimited        EventType = "rate_limited"
)

// RealtimeEvent is the envelope fanned out in-process and over SSE, and
// durably persisted to the outbox table for cross-process/catch-up delivery
// (§4.2, C2).
type RealtimeEvent struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      EventType `gorm:"size:32;not null;index" json:"type"`
	Payload   JSON      `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Delivered marks the row consumed by the outbox poller; it is never
	// deleted so SSE clients can replay from a Last-Event-ID cursor.
	Delivered bool `gorm:"not null;default:false;index" json:"-"`
}

// NewRealtimeEvent constructs an event envelope with a pre-marshaled payload.
func NewRealtimeEvent(t EventType, payload JSON) RealtimeEvent {
	return RealtimeEvent{Type: t, Payload: payload}
}
