package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

type queueRepository struct {
	db *gorm.DB
}

// NewQueueRepository builds the gorm-backed interfaces.QueueRepository.
func NewQueueRepository(db *gorm.DB) interfaces.QueueRepository {
	return &queueRepository{db: db}
}

func (r *queueRepository) Upsert(ctx context.Context, item *types.ContentQueueItem) error {
	// Idempotent keyed on (content_id, rule_id, bot_chat_id): a re-match of
	// the same content against the same rule/target must not duplicate a
	// row (§4.6 "idempotent upsert").
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_id"}, {Name: "rule_id"}, {Name: "bot_chat_id"}},
			DoNothing: true,
		}).
		Create(item).Error
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "upserting queue item", err)
	}
	return nil
}

func (r *queueRepository) Get(ctx context.Context, id int64) (*types.ContentQueueItem, error) {
	var item types.ContentQueueItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("queue item not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "loading queue item", err)
	}
	return &item, nil
}

func (r *queueRepository) List(ctx context.Context, f interfaces.QueueFilter) ([]types.ContentQueueItem, int64, error) {
	q := r.db.WithContext(ctx).Model(&types.ContentQueueItem{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ContentID != 0 {
		q = q.Where("content_id = ?", f.ContentID)
	}
	if f.RuleID != 0 {
		q = q.Where("rule_id = ?", f.RuleID)
	}
	if f.BotChatID != 0 {
		q = q.Where("bot_chat_id = ?", f.BotChatID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindTransient, "counting queue items", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var items []types.ContentQueueItem
	err := q.Order("scheduled_at ASC NULLS LAST, priority DESC, created_at ASC, id ASC").
		Offset(f.Offset).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindTransient, "listing queue items", err)
	}
	return items, total, nil
}

// ClaimDue transitions due rows to processing inside one transaction so two
// push workers can never claim the same item (§8 property 3).
func (r *queueRepository) ClaimDue(ctx context.Context, now time.Time, lockedBy string, limit int) ([]types.ContentQueueItem, error) {
	var claimed []types.ContentQueueItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []int64
		err := tx.Model(&types.ContentQueueItem{}).
			Where("status = ? AND needs_approval = ? AND scheduled_at <= ?", types.QueueStatusScheduled, false, now).
			Order("priority DESC, scheduled_at ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		err = tx.Model(&types.ContentQueueItem{}).Where("id IN ?", ids).Updates(map[string]interface{}{
			"status":     types.QueueStatusProcessing,
			"locked_at":  now,
			"locked_by":  lockedBy,
			"started_at": now,
		}).Error
		if err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Find(&claimed).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "claiming due queue items", err)
	}
	return claimed, nil
}

func (r *queueRepository) ReleaseExpiredLocks(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&types.ContentQueueItem{}).
		Where("status = ? AND locked_at < ?", types.QueueStatusProcessing, olderThan).
		Updates(map[string]interface{}{
			"status":    types.QueueStatusScheduled,
			"locked_at": nil,
			"locked_by": "",
		})
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.KindTransient, "releasing expired locks", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *queueRepository) MarkSuccess(ctx context.Context, id int64, messageID string) error {
	now := time.Now()
	return r.updateFields(ctx, id, map[string]interface{}{
		"status":       types.QueueStatusSuccess,
		"message_id":   messageID,
		"completed_at": &now,
	})
}

func (r *queueRepository) MarkFailed(ctx context.Context, id int64, errKind types.ErrorKind, errMsg string, nextAttemptAt *time.Time) error {
	now := time.Now()
	status := types.QueueStatusFailed
	if nextAttemptAt != nil {
		status = types.QueueStatusScheduled
	}
	fields := map[string]interface{}{
		"status":          status,
		"last_error":      errMsg,
		"last_error_type": errKind,
		"last_error_at":   &now,
		"locked_at":       nil,
		"locked_by":       "",
	}
	if nextAttemptAt != nil {
		fields["next_attempt_at"] = nextAttemptAt
		fields["scheduled_at"] = nextAttemptAt
	} else {
		fields["completed_at"] = &now
	}
	return r.incrementThen(ctx, id, fields)
}

func (r *queueRepository) incrementThen(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&types.ContentQueueItem{}).Where("id = ?", id).
			UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1")).Error; err != nil {
			return err
		}
		res := tx.Model(&types.ContentQueueItem{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *queueRepository) MarkSkipped(ctx context.Context, id int64, reason string) error {
	now := time.Now()
	return r.updateFields(ctx, id, map[string]interface{}{
		"status":            types.QueueStatusSkipped,
		"rate_limit_reason": reason,
		"completed_at":      &now,
	})
}

func (r *queueRepository) Cancel(ctx context.Context, id int64) error {
	now := time.Now()
	return r.updateFields(ctx, id, map[string]interface{}{
		"status":       types.QueueStatusCanceled,
		"completed_at": &now,
	})
}

func (r *queueRepository) Approve(ctx context.Context, id int64, by string) error {
	now := time.Now()
	return r.updateFields(ctx, id, map[string]interface{}{
		"needs_approval": false,
		"approved_at":    &now,
		"approved_by":    by,
		"status":         types.QueueStatusScheduled,
	})
}

func (r *queueRepository) updateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&types.ContentQueueItem{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.KindTransient, "updating queue item", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("queue item not found")
	}
	return nil
}

// Reorder assigns strictly decreasing priorities by list position, spaced
// 1000 apart: the full renumber the distqueue maintenance sweep runs, apart
// from priority.go's per-item gap allocation (§8 property: reorder index
// stability).
func (r *queueRepository) Reorder(ctx context.Context, ids []int64) error {
	const gap = 1000
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		priority := len(ids) * gap
		for _, id := range ids {
			if err := tx.Model(&types.ContentQueueItem{}).Where("id = ?", id).
				Update("priority", priority).Error; err != nil {
				return err
			}
			priority -= gap
		}
		return nil
	})
}

func (r *queueRepository) ListByContentID(ctx context.Context, contentID int64) ([]types.ContentQueueItem, error) {
	var items []types.ContentQueueItem
	err := r.db.WithContext(ctx).Where("content_id = ?", contentID).Find(&items).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "listing queue items by content", err)
	}
	return items, nil
}

func (r *queueRepository) SetSchedule(ctx context.Context, contentID int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&types.ContentQueueItem{}).
		Where("content_id = ? AND status IN ?", contentID, []types.QueueItemStatus{types.QueueStatusPending, types.QueueStatusScheduled}).
		Update("scheduled_at", at)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.KindTransient, "scheduling queue items", res.Error)
	}
	return nil
}

// PushNow implements §4.7 push_now: backdating scheduled_at and maximizing
// priority makes the item the very next thing ClaimDue's ordered scan picks
// up, without needing a separate "forced" code path in the claim query.
func (r *queueRepository) PushNow(ctx context.Context, id int64) error {
	return r.updateFields(ctx, id, map[string]interface{}{
		"scheduled_at": time.Now().Add(-24 * time.Hour),
		"priority":     9999,
		"status":       types.QueueStatusScheduled,
	})
}

func (r *queueRepository) Retry(ctx context.Context, id int64) error {
	return r.updateFields(ctx, id, map[string]interface{}{
		"status":          types.QueueStatusScheduled,
		"attempt_count":   0,
		"scheduled_at":    time.Now(),
		"last_error":      "",
		"last_error_type": "",
		"completed_at":    nil,
	})
}

func (r *queueRepository) SetPriority(ctx context.Context, id int64, priority int) error {
	return r.updateFields(ctx, id, map[string]interface{}{"priority": priority})
}

func (r *queueRepository) Stats(ctx context.Context) (map[types.StatsBucket]int64, error) {
	rows, err := r.db.WithContext(ctx).Model(&types.ContentQueueItem{}).
		Select("status, needs_approval, count(*) as n").
		Group("status, needs_approval").Rows()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "computing queue stats", err)
	}
	defer rows.Close()

	out := map[types.StatsBucket]int64{}
	for rows.Next() {
		var status types.QueueItemStatus
		var needsApproval bool
		var n int64
		if err := rows.Scan(&status, &needsApproval, &n); err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransient, "scanning queue stats", err)
		}
		out[status.Bucket(needsApproval)] += n
	}
	return out, nil
}
