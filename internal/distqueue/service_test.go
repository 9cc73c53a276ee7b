package distqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vaultstream/vaultstream/internal/types"
)

func item(id int64, scheduledAt *time.Time, priority int, createdAt time.Time) types.ContentQueueItem {
	return types.ContentQueueItem{ID: id, ScheduledAt: scheduledAt, Priority: priority, CreatedAt: createdAt}
}

func at(t time.Time) *time.Time { return &t }

// TestOrderForReorder_ExternalOrderingInvariant exercises §4.7's "scheduled_at
// asc (nulls last), priority desc, created_at asc" ordering directly, the
// exact invariant reorder() must splice against.
func TestOrderForReorder_ExternalOrderingInvariant(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	items := []types.ContentQueueItem{
		item(1, nil, 10, base),                          // no schedule: sorts last among its priority tier
		item(2, at(base.Add(time.Hour)), 5, base),        // scheduled later
		item(3, at(base.Add(30 * time.Minute)), 5, base), // scheduled sooner, same priority as 2
		item(4, at(base.Add(30 * time.Minute)), 9, base), // same time as 3, higher priority
		item(5, nil, 10, base.Add(-time.Hour)),           // no schedule, same priority as 1, created earlier
	}

	ordered := orderForReorder(items)
	ids := make([]int64, len(ordered))
	for i, it := range ordered {
		ids[i] = it.ID
	}

	// 4 and 3 share scheduled_at=base+30m; 4 has higher priority so it comes
	// first. Then 2 (base+1h). Unscheduled items (5, 1) come last, ordered by
	// created_at asc within the tier.
	assert.Equal(t, []int64{4, 3, 2, 5, 1}, ids)
}

func TestOrderForReorder_StableOnTies(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []types.ContentQueueItem{
		item(1, at(base), 5, base),
		item(2, at(base), 5, base),
		item(3, at(base), 5, base),
	}
	ordered := orderForReorder(items)
	assert.Equal(t, int64(1), ordered[0].ID)
	assert.Equal(t, int64(2), ordered[1].ID)
	assert.Equal(t, int64(3), ordered[2].ID)
}
