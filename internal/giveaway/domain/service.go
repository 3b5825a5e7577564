package domain

import (
	"context"
	"errors"

	ledgerdomain "github.com/smallbiznis/giftbot/internal/ledger/domain"
	userdomain "github.com/smallbiznis/giftbot/internal/user/domain"
)

type Service interface {
	Register(ctx context.Context, who Requester) (userdomain.User, error)
	Profile(ctx context.Context, userID int64) (userdomain.User, error)

	// RequestGift files a subscription request. With auto-approval on the
	// request is approved by SystemActor and the gift is delivered at once;
	// otherwise every admin is notified and the request waits. A requester
	// whose gift is already recorded as sent gets OutcomeGiftAlreadySent.
	RequestGift(ctx context.Context, who Requester) (RequestResult, error)
	Decide(ctx context.Context, actorID, requestID int64, approve bool) (DecisionResult, error)
	// CheckSubscription delivers the gift to current channel members that
	// have not received it yet, independent of any request.
	CheckSubscription(ctx context.Context, who Requester) (CheckResult, error)
	// AcknowledgeGift records that an admin handed the gift over. It reports
	// whether this call flipped the flag.
	AcknowledgeGift(ctx context.Context, actorID, userID int64) (bool, error)

	AddStars(ctx context.Context, actorID, amount int64, note string) (int64, error)
	SubtractStars(ctx context.Context, actorID, amount int64, note string) (int64, error)
	Balance(ctx context.Context, actorID int64) (int64, error)

	Overview(ctx context.Context, actorID int64) (Overview, error)
	Stats(ctx context.Context, actorID int64) (Stats, error)
	PendingRequests(ctx context.Context, actorID int64, limit int) (PendingPage, error)
	RecentGifts(ctx context.Context, actorID int64, limit int) ([]ledgerdomain.Entry, error)
	SetAutoApproval(ctx context.Context, actorID int64, enabled bool) error
	ToggleAutoApproval(ctx context.Context, actorID int64) (bool, error)
}

var (
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidUserID    = errors.New("invalid_user_id")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrRequestNotFound  = errors.New("request_not_found")
	ErrAlreadyProcessed = errors.New("request_already_processed")
	ErrTransport        = errors.New("transport_unavailable")
)
