package domain

import (
	"context"
	"errors"
)

type RegisterRequest struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (User, error)
	Get(ctx context.Context, userID int64) (User, error)
	SetSubscribed(ctx context.Context, userID int64, subscribed bool) error
	// MarkGiftSent reports whether this call performed the false to true
	// transition.
	MarkGiftSent(ctx context.Context, userID int64) (bool, error)
}

var (
	ErrInvalidID = errors.New("invalid_user_id")
	ErrNotFound  = errors.New("user_not_found")
)
