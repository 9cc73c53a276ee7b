// Package eventbus implements C2: an in-process pub/sub fan-out backed by a
// durable outbox table, plus an SSE handler and short-lived JWT subscription
// tokens (§4.2).
package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/vaultstream/vaultstream/internal/common"
	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

const subscriberBuffer = 64

// Bus is the in-process pub/sub hub. Every Publish also durably records the
// event via EventRepository before fan-out, so a subscriber that connects
// late (or a process that crashed mid-delivery) can replay from the outbox.
type Bus struct {
	repo interfaces.EventRepository

	mu          sync.Mutex
	subscribers map[int]chan types.RealtimeEvent
	nextID      int
	droppedN    int64
}

// New builds a Bus persisting events through repo.
func New(repo interfaces.EventRepository) *Bus {
	return &Bus{repo: repo, subscribers: make(map[int]chan types.RealtimeEvent)}
}

// Publish marshals payload, persists the event, then fans it out to every
// live subscriber without blocking on slow consumers (§4.2: a full
// subscriber channel drops the event rather than stalling the publisher).
func (b *Bus) Publish(ctx context.Context, t types.EventType, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "marshaling event payload", err)
	}
	event := types.NewRealtimeEvent(t, raw)
	if err := b.repo.Insert(ctx, &event); err != nil {
		return err
	}

	b.mu.Lock()
	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.droppedN++
			common.StageWarn(ctx, "eventbus", "drop", map[string]interface{}{
				"subscriber_id": id,
				"event_type":    t,
				"dropped_total": b.droppedN,
			})
		}
	}
	b.mu.Unlock()

	// Mark delivered immediately: this process already fanned the event out
	// in-process above. Other processes' OutboxPollers still observe the row
	// via ListSince before this call lands, so cross-process delivery is
	// unaffected; it only stops this process's own poller from redelivering
	// an event it just handed out synchronously.
	if err := b.repo.MarkDelivered(ctx, []int64{event.ID}); err != nil {
		common.StageWarn(ctx, "eventbus", "mark_delivered_failed", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// Subscribe registers a bounded channel for the caller and returns a cancel
// func that must be called to unregister it.
func (b *Bus) Subscribe(ctx context.Context) (<-chan types.RealtimeEvent, func()) {
	ch := make(chan types.RealtimeEvent, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(ch)
		}
	}
	return ch, cancel
}

// DroppedCount returns the cumulative number of events dropped due to a full
// subscriber buffer, exposed for metrics/health (§9 no-silent-drops note).
func (b *Bus) DroppedCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.droppedN
}

var _ interfaces.EventBus = (*Bus)(nil)
