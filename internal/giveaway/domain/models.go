package domain

import (
	"github.com/smallbiznis/giftbot/internal/providers/telegram"
	subscriptiondomain "github.com/smallbiznis/giftbot/internal/subscription/domain"
)

// Requester is the Telegram identity behind an incoming update.
type Requester struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

type Outcome string

const (
	OutcomePending           Outcome = "pending"
	OutcomeAutoApproved      Outcome = "auto_approved"
	OutcomeAlreadySubscribed Outcome = "already_subscribed"
	OutcomeNotSubscribed     Outcome = "not_subscribed"
	OutcomeGiftDelivered     Outcome = "gift_delivered"
	OutcomeGiftAlreadySent   Outcome = "gift_already_sent"
)

// Delivery paths, used as the metric label.
const (
	PathApproval = "approval"
	PathAuto     = "auto"
	PathCheck    = "check"
)

// RequestResult reports what happened to a gift request. Delivered is set
// only when the congratulation actually reached the requester.
type RequestResult struct {
	Outcome   Outcome
	Request   subscriptiondomain.Request
	Delivered bool
}

// DecisionResult is the processed request plus, for approvals, whether the
// gift notification went out.
type DecisionResult struct {
	Request   subscriptiondomain.Request
	Delivered bool
}

type CheckResult struct {
	Outcome Outcome
	Status  telegram.MemberStatus
}

type Overview struct {
	AutoApproval bool
	Pending      int64
}

type Stats struct {
	TotalGifts   int64
	StarsOnGifts int64
	StarsPerGift int64
	Pending      int64
	Balance      int64
	AutoApproval bool
}

type PendingPage struct {
	Items []subscriptiondomain.Request
	Total int64
}
