package distqueue

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vaultstream/vaultstream/internal/common"
	"github.com/vaultstream/vaultstream/internal/telemetry"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

// StartMaintenance registers the two periodic sweeps cron.v3 drives for C7:
// a full priority renormalization (the gap-allocation scheme's last resort,
// run proactively on a slow cadence so reorder() rarely has to do it inline)
// and a stale-lease reclaim sweep that mirrors the push worker's own lease
// recovery in case a worker process died holding locks.
func (s *Service) StartMaintenance(c *cron.Cron, leaseRelease func(ctx context.Context, olderThan time.Time) (int64, error)) error {
	if _, err := c.AddFunc("@every 1h", func() {
		s.renormalizeAll(context.Background())
	}); err != nil {
		return err
	}
	if _, err := c.AddFunc("@every 2m", func() {
		n, err := leaseRelease(context.Background(), time.Now().Add(-10*time.Minute))
		if err != nil {
			common.StageWarn(context.Background(), "distqueue", "lease_reclaim_failed", map[string]interface{}{"error": err.Error()})
			return
		}
		if n > 0 {
			common.StageInfo(context.Background(), "distqueue", "lease_reclaimed", map[string]interface{}{"count": n})
		}
	}); err != nil {
		return err
	}
	return nil
}

// renormalizeAll reassigns evenly-spaced priorities across the whole live
// view, proactively undoing whatever gap exhaustion individual reorder()
// calls have accumulated since the last sweep.
func (s *Service) renormalizeAll(ctx context.Context) {
	ctx, span := telemetry.Start(ctx, "distqueue.renormalize")
	defer span.End()

	items, _, err := s.queue.List(ctx, interfaces.QueueFilter{Limit: 10000})
	if err != nil {
		telemetry.RecordError(span, err)
		common.StageWarn(ctx, "distqueue", "renormalize_list_failed", map[string]interface{}{"error": err.Error()})
		return
	}
	ordered := orderForReorder(items)
	ids := make([]int64, len(ordered))
	for i, it := range ordered {
		ids[i] = it.ID
	}
	telemetry.SetIntAttr(span, "item_count", len(ids))
	if err := s.queue.Reorder(ctx, ids); err != nil {
		telemetry.RecordError(span, err)
		common.StageWarn(ctx, "distqueue", "renormalize_failed", map[string]interface{}{"error": err.Error()})
		return
	}
	common.StageInfo(ctx, "distqueue", "renormalized", map[string]interface{}{"count": len(ids)})
}
