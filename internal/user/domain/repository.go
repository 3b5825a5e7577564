package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert inserts the user or refreshes the name fields of an existing row.
	Upsert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, userID int64) (*User, error)
	// SetSubscribed writes the flag; subscribed_at only changes when the flag
	// does, so a repeated subscribe keeps the first stamp.
	SetSubscribed(ctx context.Context, db *gorm.DB, userID int64, subscribed bool, at *time.Time) (int64, error)
	// MarkGiftSent flips gift_sent only when it is still false.
	MarkGiftSent(ctx context.Context, db *gorm.DB, userID int64) (int64, error)
}
