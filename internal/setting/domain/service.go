package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Get returns ErrNotFound for keys that were never written.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// AutoApproval treats a missing key as disabled.
	AutoApproval(ctx context.Context) (bool, error)
	SetAutoApproval(ctx context.Context, enabled bool) error
}

var (
	ErrInvalidKey = errors.New("invalid_setting_key")
	ErrNotFound   = errors.New("setting_not_found")
)
