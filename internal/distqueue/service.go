// Package distqueue implements C7: the distribution-queue operations a
// moderator dashboard or API caller drives directly (list/stats/push_now/
// schedule/reorder/merge_group/cancel/retry), each emitting queue_updated.
package distqueue

import (
	"context"
	"time"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

// Service implements the §4.7 operation set over interfaces.QueueRepository.
type Service struct {
	queue interfaces.QueueRepository
	bus   interfaces.EventBus
}

// New builds the distribution-queue service.
func New(queue interfaces.QueueRepository, bus interfaces.EventBus) *Service {
	return &Service{queue: queue, bus: bus}
}

// List implements §4.7 list(filters).
func (s *Service) List(ctx context.Context, f interfaces.QueueFilter) ([]types.ContentQueueItem, int64, error) {
	return s.queue.List(ctx, f)
}

// Stats implements §4.7 stats(rule_id?). ruleID == 0 means "all rules";
// the repository aggregates globally and this filters client-side since the
// bucket mapping is cheap and the row volume per rule is small.
func (s *Service) Stats(ctx context.Context, ruleID int64) (map[types.StatsBucket]int64, error) {
	if ruleID == 0 {
		return s.queue.Stats(ctx)
	}
	items, _, err := s.queue.List(ctx, interfaces.QueueFilter{RuleID: ruleID, Limit: 10000})
	if err != nil {
		return nil, err
	}
	out := map[types.StatsBucket]int64{}
	for _, it := range items {
		out[it.Status.Bucket(it.NeedsApproval)]++
	}
	return out, nil
}

// PushNow implements §4.7 push_now(item_id).
func (s *Service) PushNow(ctx context.Context, itemID int64) error {
	if err := s.queue.PushNow(ctx, itemID); err != nil {
		return err
	}
	return s.emitUpdated(ctx, itemID)
}

// PushNowForContent applies push_now to every live item of a content row,
// covering the item_id|content_id alternative the spec allows.
func (s *Service) PushNowForContent(ctx context.Context, contentID int64) error {
	items, err := s.queue.ListByContentID(ctx, contentID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Status.IsTerminal() {
			continue
		}
		if err := s.queue.PushNow(ctx, it.ID); err != nil {
			return err
		}
	}
	return s.bus.Publish(ctx, types.EventQueueUpdated, map[string]interface{}{"content_id": contentID})
}

// Schedule implements §4.7 schedule(content_id, at).
func (s *Service) Schedule(ctx context.Context, contentID int64, at time.Time) error {
	if err := s.queue.SetSchedule(ctx, contentID, at); err != nil {
		return err
	}
	return s.bus.Publish(ctx, types.EventQueueUpdated, map[string]interface{}{"content_id": contentID, "scheduled_at": at})
}

// Cancel implements §4.7 cancel(item).
func (s *Service) Cancel(ctx context.Context, itemID int64) error {
	if err := s.queue.Cancel(ctx, itemID); err != nil {
		return err
	}
	return s.emitUpdated(ctx, itemID)
}

// Retry implements §4.7 retry(item).
func (s *Service) Retry(ctx context.Context, itemID int64) error {
	if err := s.queue.Retry(ctx, itemID); err != nil {
		return err
	}
	return s.emitUpdated(ctx, itemID)
}

// Approve approves a pending-review item, per §4.6's approval gate.
func (s *Service) Approve(ctx context.Context, itemID int64, by string) error {
	if err := s.queue.Approve(ctx, itemID, by); err != nil {
		return err
	}
	return s.emitUpdated(ctx, itemID)
}

// MergeGroup implements §4.7 merge_group(content_ids[], at?): aligns
// scheduled_at across every listed content's live items so target.merge_forward
// batching (§4.8) has a shared timestamp to group on.
func (s *Service) MergeGroup(ctx context.Context, contentIDs []int64, at *time.Time) error {
	if len(contentIDs) == 0 {
		return apperrors.NewBadRequestError("merge_group requires at least one content id")
	}

	target := at
	if target == nil {
		earliest, err := s.earliestScheduledAt(ctx, contentIDs)
		if err != nil {
			return err
		}
		target = earliest
	}
	if target == nil {
		now := time.Now()
		target = &now
	}

	for _, id := range contentIDs {
		if err := s.queue.SetSchedule(ctx, id, *target); err != nil {
			return err
		}
	}
	return s.bus.Publish(ctx, types.EventQueueUpdated, map[string]interface{}{"content_ids": contentIDs, "scheduled_at": *target})
}

func (s *Service) earliestScheduledAt(ctx context.Context, contentIDs []int64) (*time.Time, error) {
	var earliest *time.Time
	for _, id := range contentIDs {
		items, err := s.queue.ListByContentID(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.ScheduledAt == nil || it.Status.IsTerminal() {
				continue
			}
			if earliest == nil || it.ScheduledAt.Before(*earliest) {
				earliest = it.ScheduledAt
			}
		}
	}
	return earliest, nil
}

// Reorder implements §4.7 reorder(content_id, index): the priority
// gap-allocation algorithm lives in priority.go; this resolves the index
// against the same filtered view the caller is looking at (e.g. a dashboard
// scoped to one rule or status), splices it at index, and persists the new
// ordering.
func (s *Service) Reorder(ctx context.Context, contentID int64, index int, f interfaces.QueueFilter) error {
	f.Offset = 0
	if f.Limit <= 0 {
		f.Limit = 10000
	}
	view, _, err := s.queue.List(ctx, f)
	if err != nil {
		return err
	}
	ordered := orderForReorder(view)

	var movingIdx = -1
	for i, it := range ordered {
		if it.ContentID == contentID {
			movingIdx = i
			break
		}
	}
	if movingIdx < 0 {
		return apperrors.NewNotFoundError("content has no live queue items to reorder")
	}

	moving := ordered[movingIdx]
	rest := append(ordered[:movingIdx:movingIdx], ordered[movingIdx+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(rest) {
		index = len(rest)
	}

	var before, after *int
	if index > 0 {
		p := rest[index-1].Priority
		before = &p
	}
	if index < len(rest) {
		p := rest[index].Priority
		after = &p
	}

	if newPriority, ok := priorityBetween(before, after); ok {
		if err := s.queue.SetPriority(ctx, moving.ID, newPriority); err != nil {
			return err
		}
	} else {
		// Gap exhausted between these two neighbors: full renumber of the
		// spliced view is the documented last resort (SPEC_FULL §C).
		spliced := make([]types.ContentQueueItem, 0, len(ordered))
		spliced = append(spliced, rest[:index]...)
		spliced = append(spliced, moving)
		spliced = append(spliced, rest[index:]...)
		ids := make([]int64, len(spliced))
		for i, it := range spliced {
			ids[i] = it.ID
		}
		priorities := renumberPriorities(len(ids))
		for i, id := range ids {
			if err := s.queue.SetPriority(ctx, id, priorities[i]); err != nil {
				return err
			}
		}
	}

	return s.bus.Publish(ctx, types.EventQueueUpdated, map[string]interface{}{"content_id": contentID, "index": index})
}

// orderForReorder applies §4.7's external ordering invariant: scheduled_at
// asc (nulls last), priority desc, created_at asc.
func orderForReorder(items []types.ContentQueueItem) []types.ContentQueueItem {
	out := make([]types.ContentQueueItem, len(items))
	copy(out, items)
	sortStable(out)
	return out
}

func sortStable(items []types.ContentQueueItem) {
	// insertion sort: queue views are bounded by the list limit, not hot-path
	// sized, and this keeps the comparator simple to audit against §4.7's
	// literal ordering invariant.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func less(a, b types.ContentQueueItem) bool {
	if (a.ScheduledAt == nil) != (b.ScheduledAt == nil) {
		return b.ScheduledAt == nil
	}
	if a.ScheduledAt != nil && b.ScheduledAt != nil && !a.ScheduledAt.Equal(*b.ScheduledAt) {
		return a.ScheduledAt.Before(*b.ScheduledAt)
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (s *Service) emitUpdated(ctx context.Context, itemID int64) error {
	item, err := s.queue.Get(ctx, itemID)
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, types.EventQueueUpdated, map[string]interface{}{"queue_item_id": itemID, "content_id": item.ContentID})
}
