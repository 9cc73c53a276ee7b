package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository builds the gorm-backed interfaces.ContentRepository.
func NewContentRepository(db *gorm.DB) interfaces.ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Create(ctx context.Context, c *types.Content) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return apperrors.Wrap(apperrors.KindConflict, "creating content", err)
	}
	return nil
}

func (r *contentRepository) Get(ctx context.Context, id int64) (*types.Content, error) {
	var c types.Content
	err := r.db.WithContext(ctx).Preload("Sources").First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("content not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "loading content", err)
	}
	return &c, nil
}

func (r *contentRepository) GetByCanonicalURL(ctx context.Context, platform, canonicalURL string) (*types.Content, error) {
	var c types.Content
	err := r.db.WithContext(ctx).
		Where("platform = ? AND canonical_url = ?", platform, canonicalURL).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("content not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "loading content by canonical url", err)
	}
	return &c, nil
}

func (r *contentRepository) Update(ctx context.Context, c *types.Content) error {
	if err := r.db.WithContext(ctx).Save(c).Error; err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "updating content", err)
	}
	return nil
}

func (r *contentRepository) List(ctx context.Context, f interfaces.ContentFilter) ([]types.Content, int64, error) {
	q := r.db.WithContext(ctx).Model(&types.Content{})
	if f.Platform != "" {
		q = q.Where("platform = ?", f.Platform)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ReviewStatus != "" {
		q = q.Where("review_status = ?", f.ReviewStatus)
	}
	if f.Tag != "" {
		q = q.Where("tags @> ?", "[\""+f.Tag+"\"]")
	}
	if f.IsNSFW != nil {
		q = q.Where("is_nsfw = ?", *f.IsNSFW)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindTransient, "counting contents", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var items []types.Content
	err := q.Order("created_at DESC").Offset(f.Offset).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindTransient, "listing contents", err)
	}
	return items, total, nil
}

func (r *contentRepository) AddSource(ctx context.Context, src *types.ContentSource) error {
	if err := r.db.WithContext(ctx).Create(src).Error; err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "adding content source", err)
	}
	return nil
}

func (r *contentRepository) MarkReview(ctx context.Context, id int64, status types.ReviewStatus, by, note string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&types.Content{}).Where("id = ?", id).Updates(map[string]interface{}{
		"review_status": status,
		"reviewed_at":   &now,
		"reviewed_by":   by,
		"reviewed_note": note,
	})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.KindTransient, "marking review", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("content not found")
	}
	return nil
}
