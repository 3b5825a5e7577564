package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type OperationType string

const (
	OperationAdd      OperationType = "add"
	OperationSubtract OperationType = "subtract"
	OperationGiftSent OperationType = "gift_sent"
	OperationInit     OperationType = "init"
)

func (o OperationType) Valid() bool {
	switch o {
	case OperationAdd, OperationSubtract, OperationGiftSent, OperationInit:
		return true
	}
	return false
}

// AffectsBalance is false for audit-only rows.
func (o OperationType) AffectsBalance() bool {
	return o == OperationAdd || o == OperationSubtract
}

// Entry is an append-only row of the manual stars ledger. Add and subtract
// amounts are signed and the operation applies its own sign on top, so a
// negative add is a correction. Audit rows never carry a negative amount.
type Entry struct {
	ID            snowflake.ID  `gorm:"column:id;primaryKey"`
	Amount        int64         `gorm:"column:amount"`
	OperationType OperationType `gorm:"column:operation_type"`
	Description   string        `gorm:"column:description"`
	UserID        *int64        `gorm:"column:user_id"`
	GiftType      *string       `gorm:"column:gift_type"`
	CreatedAt     time.Time     `gorm:"column:created_at"`
}

func (Entry) TableName() string { return "ledger_entries" }

type Stats struct {
	TotalGifts   int64
	StarsOnGifts int64
}
