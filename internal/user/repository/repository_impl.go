package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/giftbot/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (user_id, username, first_name, last_name, is_subscribed, gift_sent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   username = excluded.username,
		   first_name = excluded.first_name,
		   last_name = excluded.last_name`,
		user.UserID,
		nullString(user.Username),
		nullString(user.FirstName),
		nullString(user.LastName),
		false,
		false,
		user.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID int64) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, username, first_name, last_name, subscribed_at, is_subscribed, gift_sent, created_at
		 FROM users WHERE user_id = ?`,
		userID,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.UserID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) SetSubscribed(ctx context.Context, db *gorm.DB, userID int64, subscribed bool, at *time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users
		SET subscribed_at = CASE WHEN is_subscribed = ? THEN subscribed_at ELSE ? END,
			is_subscribed = ?
		WHERE user_id = ?`,
		subscribed,
		at,
		subscribed,
		userID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkGiftSent(ctx context.Context, db *gorm.DB, userID int64) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET gift_sent = ? WHERE user_id = ? AND gift_sent = ?`,
		true,
		userID,
		false,
	)
	return res.RowsAffected, res.Error
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
