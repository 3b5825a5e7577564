package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/giftbot/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, req *domain.Request) error {
	return db.WithContext(ctx).Create(req).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Request, error) {
	var req domain.Request
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, username, first_name, last_name, status, created_at, processed_at, processed_by
		 FROM subscription_requests WHERE id = ?`,
		id,
	).Scan(&req).Error
	if err != nil {
		return nil, err
	}
	if req.ID == 0 {
		return nil, nil
	}
	return &req, nil
}

func (r *repo) ListByStatus(ctx context.Context, db *gorm.DB, status domain.Status, limit int) ([]*domain.Request, error) {
	var items []*domain.Request
	stmt := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("status = ?", status).
		Order("created_at asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, status domain.Status) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM subscription_requests WHERE status = ?`,
		status,
	).Scan(&count).Error
	return count, err
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id int64, from, to domain.Status, actorID int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE subscription_requests
		 SET status = ?, processed_at = ?, processed_by = ?
		 WHERE id = ? AND status = ?`,
		to,
		at,
		actorID,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
