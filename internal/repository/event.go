package repository

import (
	"context"

	"gorm.io/gorm"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository builds the gorm-backed interfaces.EventRepository (C2 outbox).
func NewEventRepository(db *gorm.DB) interfaces.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Insert(ctx context.Context, e *types.RealtimeEvent) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "inserting outbox event", err)
	}
	return nil
}

func (r *eventRepository) ListSince(ctx context.Context, sinceID int64, limit int) ([]types.RealtimeEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []types.RealtimeEvent
	err := r.db.WithContext(ctx).
		Where("id > ?", sinceID).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "listing outbox events", err)
	}
	return events, nil
}

func (r *eventRepository) MarkDelivered(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&types.RealtimeEvent{}).
		Where("id IN ?", ids).
		Update("delivered", true).Error
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "marking outbox events delivered", err)
	}
	return nil
}
