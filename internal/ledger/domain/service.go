package domain

import (
	"context"
	"errors"
)

type RecordRequest struct {
	Amount        int64
	OperationType OperationType
	Description   string
	UserID        int64
	GiftType      string
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (Entry, error)
	Add(ctx context.Context, amount int64, description string) (Entry, error)
	Subtract(ctx context.Context, amount int64, description string) (Entry, error)
	// RecordGift appends an audit row for a delivered gift. It never changes
	// the balance.
	RecordGift(ctx context.Context, userID, amount int64, giftType string) (Entry, error)
	Balance(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (Stats, error)
	ListGifts(ctx context.Context, limit int) ([]Entry, error)
}

var (
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidOperation = errors.New("invalid_operation")
)
