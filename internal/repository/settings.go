package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
)

// SettingRow is the DB-backed tier of the §4.11 three-tier settings chain.
type SettingRow struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text"`
	IsSecret  bool   `gorm:"not null;default:false"`
	UpdatedAt time.Time
}

func (SettingRow) TableName() string { return "settings" }

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository builds the gorm-backed DB tier used by internal/settings.
func NewSettingsRepository(db *gorm.DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var row SettingRow
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.Wrap(apperrors.KindTransient, "loading setting", err)
	}
	return row.Value, true, nil
}

func (r *settingsRepository) Set(ctx context.Context, key, value string, isSecret bool) error {
	row := SettingRow{Key: key, Value: value, IsSecret: isSecret, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, "saving setting", err)
	}
	return nil
}

func (r *settingsRepository) All(ctx context.Context) (map[string]string, error) {
	var rows []SettingRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, "listing settings", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}
