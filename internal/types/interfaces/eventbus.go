package interfaces

import (
	"context"

	"github.com/vaultstream/vaultstream/internal/types"
)

// EventBus is the in-process pub/sub + durable outbox contract (C2, §4.2).
type EventBus interface {
	// Publish persists the event to the outbox and fans it out to any
	// currently-subscribed in-process listeners (e.g. SSE handlers).
	Publish(ctx context.Context, t types.EventType, payload interface{}) error

	// Subscribe registers a bounded channel that receives every event
	// published after the call returns. The returned cancel func must be
	// called to unregister and release the channel.
	Subscribe(ctx context.Context) (ch <-chan types.RealtimeEvent, cancel func())
}

// EventRepository persists and replays the outbox table backing EventBus
// durability and SSE Last-Event-ID catch-up.
type EventRepository interface {
	Insert(ctx context.Context, e *types.RealtimeEvent) error
	ListSince(ctx context.Context, sinceID int64, limit int) ([]types.RealtimeEvent, error)
	MarkDelivered(ctx context.Context, ids []int64) error
}
