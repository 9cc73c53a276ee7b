package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

type ruleRepository struct {
	db *gorm.DB
}

// NewRuleRepository builds the gorm-backed interfaces.RuleRepository.
func NewRuleRepository(db *gorm.DB) interfaces.RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) Create(ctx context.Context, rule *types.DistributionRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "creating rule", err)
	}
	return nil
}

func (r *ruleRepository) Get(ctx context.Context, id int64) (*types.DistributionRule, error) {
	var rule types.DistributionRule
	err := r.db.WithContext(ctx).Preload("Targets").First(&rule, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("rule not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "loading rule", err)
	}
	return &rule, nil
}

func (r *ruleRepository) Update(ctx context.Context, rule *types.DistributionRule) error {
	if err := r.db.WithContext(ctx).Save(rule).Error; err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "updating rule", err)
	}
	return nil
}

func (r *ruleRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&types.DistributionRule{}, id)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.KindTransient, "deleting rule", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("rule not found")
	}
	return nil
}

func (r *ruleRepository) ListEnabled(ctx context.Context) ([]types.DistributionRule, error) {
	var rules []types.DistributionRule
	err := r.db.WithContext(ctx).
		Preload("Targets", "enabled = ?", true).
		Where("enabled = ?", true).
		Order("priority DESC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "listing enabled rules", err)
	}
	return rules, nil
}

func (r *ruleRepository) List(ctx context.Context) ([]types.DistributionRule, error) {
	var rules []types.DistributionRule
	err := r.db.WithContext(ctx).Preload("Targets").Order("priority DESC, id ASC").Find(&rules).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "listing rules", err)
	}
	return rules, nil
}

func (r *ruleRepository) GetTarget(ctx context.Context, ruleID, botChatID int64) (*types.DistributionTarget, error) {
	var target types.DistributionTarget
	err := r.db.WithContext(ctx).
		Where("rule_id = ? AND bot_chat_id = ?", ruleID, botChatID).
		First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("distribution target not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "loading distribution target", err)
	}
	return &target, nil
}
