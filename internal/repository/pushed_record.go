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

type pushedRecordRepository struct {
	db *gorm.DB
}

// NewPushedRecordRepository builds the gorm-backed interfaces.PushedRecordRepository.
func NewPushedRecordRepository(db *gorm.DB) interfaces.PushedRecordRepository {
	return &pushedRecordRepository{db: db}
}

func (r *pushedRecordRepository) Create(ctx context.Context, rec *types.PushedRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"message_id", "push_status", "pushed_at", "error_message"}),
		}).
		Create(rec).Error
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "recording push", err)
	}
	return nil
}

func (r *pushedRecordRepository) Get(ctx context.Context, contentID, targetID int64) (*types.PushedRecord, error) {
	var rec types.PushedRecord
	err := r.db.WithContext(ctx).
		Where("content_id = ? AND target_id = ?", contentID, targetID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("pushed record not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "loading pushed record", err)
	}
	return &rec, nil
}

// CountSince implements the §9 rolling-window rate limit: the count is
// derived live from PushedRecord rows, never from a cached counter.
func (r *pushedRecordRepository) CountSince(ctx context.Context, targetID int64, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&types.PushedRecord{}).
		Where("target_id = ? AND pushed_at >= ? AND push_status = ?", targetID, since, "success").
		Count(&n).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindTransient, "counting pushed records", err)
	}
	return n, nil
}

func (r *pushedRecordRepository) ListForTargetSince(ctx context.Context, targetID int64, since time.Time) ([]types.PushedRecord, error) {
	var recs []types.PushedRecord
	err := r.db.WithContext(ctx).
		Where("target_id = ? AND pushed_at >= ?", targetID, since).
		Order("pushed_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "listing pushed records", err)
	}
	return recs, nil
}
