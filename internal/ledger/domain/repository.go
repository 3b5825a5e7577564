package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	Balance(ctx context.Context, db *gorm.DB) (int64, error)
	Stats(ctx context.Context, db *gorm.DB) (Stats, error)
	// ListByOperation returns newest first; limit <= 0 means no limit.
	ListByOperation(ctx context.Context, db *gorm.DB, op OperationType, limit int) ([]*Entry, error)
}
