package domain

import "time"

// User mirrors a Telegram account that has talked to the bot.
type User struct {
	UserID       int64      `gorm:"column:user_id;primaryKey"`
	Username     string     `gorm:"column:username"`
	FirstName    string     `gorm:"column:first_name"`
	LastName     string     `gorm:"column:last_name"`
	SubscribedAt *time.Time `gorm:"column:subscribed_at"`
	IsSubscribed bool       `gorm:"column:is_subscribed"`
	GiftSent     bool       `gorm:"column:gift_sent"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
}

func (User) TableName() string { return "users" }

// DisplayName prefers the @username and falls back to the first name.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "user"
}
