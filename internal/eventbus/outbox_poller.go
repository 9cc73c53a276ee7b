package eventbus

import (
	"context"
	"time"

	"github.com/vaultstream/vaultstream/internal/common"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

// OutboxPoller periodically reads events inserted by other processes (e.g.
// the worker process publishing a distribution_push_success event) and fans them out
// through this process's in-memory Bus, so SSE clients connected to the
// server see events regardless of which process produced them (§4.2).
type OutboxPoller struct {
	repo     interfaces.EventRepository
	bus      *Bus
	interval time.Duration
	lastID   int64
}

// NewOutboxPoller builds a poller reading repo every interval.
func NewOutboxPoller(repo interfaces.EventRepository, bus *Bus, interval time.Duration) *OutboxPoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxPoller{repo: repo, bus: bus, interval: interval}
}

// Run blocks, polling until ctx is canceled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *OutboxPoller) pollOnce(ctx context.Context) {
	events, err := p.repo.ListSince(ctx, p.lastID, 200)
	if err != nil {
		common.StageWarn(ctx, "eventbus", "poll_failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(events) == 0 {
		return
	}

	var delivered []int64
	p.bus.mu.Lock()
	for _, e := range events {
		for _, ch := range p.bus.subscribers {
			select {
			case ch <- e:
			default:
				p.bus.droppedN++
			}
		}
		delivered = append(delivered, e.ID)
		if e.ID > p.lastID {
			p.lastID = e.ID
		}
	}
	p.bus.mu.Unlock()

	if err := p.repo.MarkDelivered(ctx, delivered); err != nil {
		common.StageWarn(ctx, "eventbus", "mark_delivered_failed", map[string]interface{}{"error": err.Error()})
	}
}
