package domain

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// SystemActor is recorded as processed_by when the bot itself approves.
// Telegram never issues user id 0.
const SystemActor int64 = 0

// Request is one ask for the gift. The name fields are a snapshot taken when
// the request was created.
type Request struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      int64      `gorm:"column:user_id"`
	Username    *string    `gorm:"column:username"`
	FirstName   *string    `gorm:"column:first_name"`
	LastName    *string    `gorm:"column:last_name"`
	Status      Status     `gorm:"column:status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
	ProcessedBy *int64     `gorm:"column:processed_by"`
}

func (Request) TableName() string { return "subscription_requests" }

func (r Request) UsernameOrEmpty() string  { return deref(r.Username) }
func (r Request) FirstNameOrEmpty() string { return deref(r.FirstName) }
func (r Request) LastNameOrEmpty() string  { return deref(r.LastName) }

// DisplayName prefers the @username and falls back to the first name.
func (r Request) DisplayName() string {
	if u := deref(r.Username); u != "" {
		return "@" + u
	}
	if f := deref(r.FirstName); f != "" {
		return f
	}
	return "user"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
