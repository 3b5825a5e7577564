package domain

import (
	"context"
	"errors"
)

type CreateRequest struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

type ProcessRequest struct {
	ID      int64
	Status  Status
	ActorID int64
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Request, error)
	Get(ctx context.Context, id int64) (Request, error)
	// ListPending returns pending requests oldest first; limit <= 0 returns all.
	ListPending(ctx context.Context, limit int) ([]Request, error)
	CountPending(ctx context.Context) (int64, error)
	// Process settles a pending request. Approval also marks the owner as
	// subscribed in the same transaction.
	Process(ctx context.Context, req ProcessRequest) (Request, error)
}

var (
	ErrInvalidUser      = errors.New("invalid_user_id")
	ErrInvalidID        = errors.New("invalid_request_id")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrNotFound         = errors.New("request_not_found")
	ErrAlreadyProcessed = errors.New("request_already_processed")
)
