package repository

import (
	"context"

	"github.com/smallbiznis/giftbot/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (id, amount, operation_type, description, user_id, gift_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Amount,
		entry.OperationType,
		entry.Description,
		entry.UserID,
		entry.GiftType,
		entry.CreatedAt,
	).Error
}

func (r *repo) Balance(ctx context.Context, db *gorm.DB) (int64, error) {
	var balance int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(CASE
		   WHEN operation_type = ? THEN amount
		   WHEN operation_type = ? THEN -amount
		   ELSE 0 END), 0)
		 FROM ledger_entries`,
		domain.OperationAdd,
		domain.OperationSubtract,
	).Scan(&balance).Error
	return balance, err
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB) (domain.Stats, error) {
	var row struct {
		TotalGifts   int64
		StarsOnGifts int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total_gifts, COALESCE(SUM(amount), 0) AS stars_on_gifts
		 FROM ledger_entries WHERE operation_type = ?`,
		domain.OperationGiftSent,
	).Scan(&row).Error
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{TotalGifts: row.TotalGifts, StarsOnGifts: row.StarsOnGifts}, nil
}

func (r *repo) ListByOperation(ctx context.Context, db *gorm.DB, op domain.OperationType, limit int) ([]*domain.Entry, error) {
	var items []*domain.Entry
	stmt := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("operation_type = ?", op).
		Order("created_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
