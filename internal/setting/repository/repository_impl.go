package repository

import (
	"context"

	"github.com/smallbiznis/giftbot/internal/setting/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key string) (*domain.Setting, error) {
	var rows []domain.Setting
	err := db.WithContext(ctx).Raw(
		`SELECT key, value, updated_at FROM settings WHERE key = ?`,
		key,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, setting *domain.Setting) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		setting.Key,
		setting.Value,
		setting.UpdatedAt,
	).Error
}
