package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, req *Request) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Request, error)
	// ListByStatus returns oldest first; limit <= 0 means no limit.
	ListByStatus(ctx context.Context, db *gorm.DB, status Status, limit int) ([]*Request, error)
	CountByStatus(ctx context.Context, db *gorm.DB, status Status) (int64, error)
	// Transition moves a request from one status to another and reports
	// whether the row was still in the expected status.
	Transition(ctx context.Context, db *gorm.DB, id int64, from, to Status, actorID int64, at time.Time) (bool, error)
}
