package authorization

import (
	"context"
	"errors"
)

// Authorizer answers capability questions about Telegram users.
type Authorizer interface {
	IsAdmin(ctx context.Context, userID int64) bool
	Authorize(ctx context.Context, userID int64, action string) error
}

const (
	ObjectGiveaway = "giveaway"

	RoleAdmin = "role:admin"
)

const (
	ActionAdminView       = "admin.view"
	ActionRequestDecide   = "request.decide"
	ActionGiftAcknowledge = "gift.acknowledge"
	ActionLedgerWrite     = "ledger.write"
	ActionSettingsWrite   = "settings.write"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidAction = errors.New("invalid_action")
)
