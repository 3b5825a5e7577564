package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/giftbot/internal/authorization"
	"github.com/smallbiznis/giftbot/internal/clock"
	"github.com/smallbiznis/giftbot/internal/config"
	"github.com/smallbiznis/giftbot/internal/giveaway/domain"
	ledgerdomain "github.com/smallbiznis/giftbot/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/giftbot/internal/observability/metrics"
	"github.com/smallbiznis/giftbot/internal/providers/telegram"
	settingdomain "github.com/smallbiznis/giftbot/internal/setting/domain"
	subscriptiondomain "github.com/smallbiznis/giftbot/internal/subscription/domain"
	userdomain "github.com/smallbiznis/giftbot/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Config     config.Config
	Gift       *config.GiftConfigHolder
	Clock      clock.Clock
	Authz      authorization.Authorizer
	Bot        telegram.Provider
	Users      userdomain.Service
	Requests   subscriptiondomain.Service
	Ledger     ledgerdomain.Service
	Settings   settingdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	cfg        config.Config
	gift       *config.GiftConfigHolder
	clock      clock.Clock
	authz      authorization.Authorizer
	bot        telegram.Provider
	users      userdomain.Service
	requests   subscriptiondomain.Service
	ledger     ledgerdomain.Service
	settings   settingdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("giveaway.service"),
		cfg:        p.Config,
		gift:       p.Gift,
		clock:      p.Clock,
		authz:      p.Authz,
		bot:        p.Bot,
		users:      p.Users,
		requests:   p.Requests,
		ledger:     p.Ledger,
		settings:   p.Settings,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Register(ctx context.Context, who domain.Requester) (userdomain.User, error) {
	user, err := s.users.Register(ctx, userdomain.RegisterRequest{
		UserID:    who.UserID,
		Username:  who.Username,
		FirstName: who.FirstName,
		LastName:  who.LastName,
	})
	if errors.Is(err, userdomain.ErrInvalidID) {
		return userdomain.User{}, domain.ErrInvalidUserID
	}
	return user, err
}

func (s *Service) Profile(ctx context.Context, userID int64) (userdomain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, userdomain.ErrInvalidID) {
		return userdomain.User{}, domain.ErrInvalidUserID
	}
	return user, err
}

func (s *Service) RequestGift(ctx context.Context, who domain.Requester) (domain.RequestResult, error) {
	user, err := s.Register(ctx, who)
	if err != nil {
		return domain.RequestResult{}, err
	}
	if user.IsSubscribed {
		s.obsMetrics.RecordRequest(ctx, string(domain.OutcomeAlreadySubscribed))
		return domain.RequestResult{Outcome: domain.OutcomeAlreadySubscribed}, nil
	}

	autoApproval, err := s.settings.AutoApproval(ctx)
	if err != nil {
		return domain.RequestResult{}, err
	}

	req, err := s.requests.Create(ctx, subscriptiondomain.CreateRequest{
		UserID:    who.UserID,
		Username:  who.Username,
		FirstName: who.FirstName,
		LastName:  who.LastName,
	})
	if err != nil {
		return domain.RequestResult{}, err
	}

	if !autoApproval {
		s.notifyAdmins(ctx, newRequestText(req, s.clock.Now()))
		s.obsMetrics.RecordRequest(ctx, string(domain.OutcomePending))
		return domain.RequestResult{Outcome: domain.OutcomePending, Request: req}, nil
	}

	approved, err := s.requests.Process(ctx, subscriptiondomain.ProcessRequest{
		ID:      req.ID,
		Status:  subscriptiondomain.StatusApproved,
		ActorID: subscriptiondomain.SystemActor,
	})
	if err != nil {
		return domain.RequestResult{}, mapRequestErr(err)
	}
	s.obsMetrics.RecordDecision(ctx, string(subscriptiondomain.StatusApproved), "system")

	if user.GiftSent {
		s.obsMetrics.RecordRequest(ctx, string(domain.OutcomeGiftAlreadySent))
		return domain.RequestResult{Outcome: domain.OutcomeGiftAlreadySent, Request: approved}, nil
	}

	delivered, err := s.deliverGift(ctx, user, domain.PathAuto)
	if err != nil {
		// The approval stands; the admins can still deliver by hand.
		s.log.Warn("auto-approved gift not delivered", zap.Int64("user_id", user.UserID), zap.Error(err))
	}

	s.obsMetrics.RecordRequest(ctx, string(domain.OutcomeAutoApproved))
	return domain.RequestResult{Outcome: domain.OutcomeAutoApproved, Request: approved, Delivered: delivered}, nil
}

func (s *Service) Decide(ctx context.Context, actorID, requestID int64, approve bool) (domain.DecisionResult, error) {
	if err := s.authorize(ctx, actorID, authorization.ActionRequestDecide); err != nil {
		return domain.DecisionResult{}, err
	}

	status := subscriptiondomain.StatusRejected
	if approve {
		status = subscriptiondomain.StatusApproved
	}
	req, err := s.requests.Process(ctx, subscriptiondomain.ProcessRequest{
		ID:      requestID,
		Status:  status,
		ActorID: actorID,
	})
	if err != nil {
		return domain.DecisionResult{}, mapRequestErr(err)
	}
	s.obsMetrics.RecordDecision(ctx, string(status), "admin")

	result := domain.DecisionResult{Request: req}
	if !approve {
		return result, nil
	}

	user, err := s.users.Get(ctx, req.UserID)
	switch {
	case errors.Is(err, userdomain.ErrNotFound):
		user = userdomain.User{
			UserID:    req.UserID,
			Username:  req.UsernameOrEmpty(),
			FirstName: req.FirstNameOrEmpty(),
			LastName:  req.LastNameOrEmpty(),
		}
	case err != nil:
		return result, err
	}

	result.Delivered, err = s.deliverGift(ctx, user, domain.PathApproval)
	if err != nil {
		s.log.Warn("approved gift not delivered", zap.Int64("request_id", req.ID), zap.Error(err))
	}
	return result, nil
}

func (s *Service) CheckSubscription(ctx context.Context, who domain.Requester) (domain.CheckResult, error) {
	user, err := s.Register(ctx, who)
	if err != nil {
		return domain.CheckResult{}, err
	}

	status, err := s.bot.ChatMemberStatus(ctx, who.UserID)
	if err != nil {
		s.log.Error("membership lookup failed", zap.Int64("user_id", who.UserID), zap.Error(err))
		return domain.CheckResult{}, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	if !status.IsSubscribed() {
		return domain.CheckResult{Outcome: domain.OutcomeNotSubscribed, Status: status}, nil
	}
	if user.GiftSent {
		return domain.CheckResult{Outcome: domain.OutcomeGiftAlreadySent, Status: status}, nil
	}

	delivered, err := s.deliverGift(ctx, user, domain.PathCheck)
	if err != nil {
		return domain.CheckResult{}, err
	}
	if !delivered {
		return domain.CheckResult{Outcome: domain.OutcomeGiftAlreadySent, Status: status}, nil
	}

	if err := s.users.SetSubscribed(ctx, user.UserID, true); err != nil {
		return domain.CheckResult{}, err
	}
	if _, err := s.markGiftSent(ctx, user.UserID); err != nil {
		return domain.CheckResult{}, err
	}
	return domain.CheckResult{Outcome: domain.OutcomeGiftDelivered, Status: status}, nil
}

func (s *Service) AcknowledgeGift(ctx context.Context, actorID, userID int64) (bool, error) {
	if err := s.authorize(ctx, actorID, authorization.ActionGiftAcknowledge); err != nil {
		return false, err
	}
	if userID <= 0 {
		return false, domain.ErrInvalidUserID
	}
	transitioned, err := s.markGiftSent(ctx, userID)
	if err != nil {
		return false, err
	}
	s.log.Info("gift acknowledged",
		zap.Int64("user_id", userID),
		zap.Int64("admin_id", actorID),
		zap.Bool("transitioned", transitioned),
	)
	return transitioned, nil
}

func (s *Service) AddStars(ctx context.Context, actorID, amount int64, note string) (int64, error) {
	if err := s.authorize(ctx, actorID, authorization.ActionLedgerWrite); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	if strings.TrimSpace(note) == "" {
		note = fmt.Sprintf("Added by admin %d", actorID)
	}
	if _, err := s.ledger.Add(ctx, amount, note); err != nil {
		return 0, mapLedgerErr(err)
	}
	return s.ledger.Balance(ctx)
}

func (s *Service) SubtractStars(ctx context.Context, actorID, amount int64, note string) (int64, error) {
	if err := s.authorize(ctx, actorID, authorization.ActionLedgerWrite); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	if strings.TrimSpace(note) == "" {
		note = fmt.Sprintf("Subtracted by admin %d", actorID)
	}
	if _, err := s.ledger.Subtract(ctx, amount, note); err != nil {
		return 0, mapLedgerErr(err)
	}
	return s.ledger.Balance(ctx)
}

func (s *Service) Balance(ctx context.Context, actorID int64) (int64, error) {
	if err := s.authorize(ctx, actorID, authorization.ActionAdminView); err != nil {
		return 0, err
	}
	return s.ledger.Balance(ctx)
}

func (s *Service) Overview(ctx context.Context, actorID int64) (domain.Overview, error) {
	if err := s.authorize(ctx, actorID, authorization.ActionAdminView); err != nil {
		return domain.Overview{}, err
	}
	autoApproval, err := s.settings.AutoApproval(ctx)
	if err != nil {
		return domain.Overview{}, err
	}
	pending, err := s.requests.CountPending(ctx)
	if err != nil {
		return domain.Overview{}, err
	}
	return domain.Overview{AutoApproval: autoApproval, Pending: pending}, nil
}

func (s *Service) Stats(ctx context.Context, actorID int64) (domain.Stats, error) {
	overview, err := s.Overview(ctx, actorID)
	if err != nil {
		return domain.Stats{}, err
	}
	gifts, err := s.ledger.Stats(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	balance, err := s.ledger.Balance(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{
		TotalGifts:   gifts.TotalGifts,
		StarsOnGifts: gifts.StarsOnGifts,
		StarsPerGift: s.gift.Get().StarsPerGift,
		Pending:      overview.Pending,
		Balance:      balance,
		AutoApproval: overview.AutoApproval,
	}, nil
}

func (s *Service) PendingRequests(ctx context.Context, actorID int64, limit int) (domain.PendingPage, error) {
	if err := s.authorize(ctx, actorID, authorization.ActionAdminView); err != nil {
		return domain.PendingPage{}, err
	}
	items, err := s.requests.ListPending(ctx, limit)
	if err != nil {
		return domain.PendingPage{}, err
	}
	total, err := s.requests.CountPending(ctx)
	if err != nil {
		return domain.PendingPage{}, err
	}
	return domain.PendingPage{Items: items, Total: total}, nil
}

func (s *Service) RecentGifts(ctx context.Context, actorID int64, limit int) ([]ledgerdomain.Entry, error) {
	if err := s.authorize(ctx, actorID, authorization.ActionAdminView); err != nil {
		return nil, err
	}
	return s.ledger.ListGifts(ctx, limit)
}

func (s *Service) SetAutoApproval(ctx context.Context, actorID int64, enabled bool) error {
	if err := s.authorize(ctx, actorID, authorization.ActionSettingsWrite); err != nil {
		return err
	}
	if err := s.settings.SetAutoApproval(ctx, enabled); err != nil {
		return err
	}
	s.log.Info("auto approval changed", zap.Bool("enabled", enabled), zap.Int64("admin_id", actorID))
	return nil
}

func (s *Service) ToggleAutoApproval(ctx context.Context, actorID int64) (bool, error) {
	if err := s.authorize(ctx, actorID, authorization.ActionSettingsWrite); err != nil {
		return false, err
	}
	current, err := s.settings.AutoApproval(ctx)
	if err != nil {
		return false, err
	}
	if err := s.SetAutoApproval(ctx, actorID, !current); err != nil {
		return false, err
	}
	return !current, nil
}

// deliverGift congratulates the user and asks every admin to hand the gift
// over. It does nothing for users whose gift is already recorded as sent.
func (s *Service) deliverGift(ctx context.Context, user userdomain.User, path string) (bool, error) {
	if user.GiftSent {
		return false, nil
	}

	gift := s.gift.Get()
	if err := s.bot.SendMessage(ctx, user.UserID, s.congratulationText(ctx, user, gift), nil); err != nil {
		s.log.Error("failed to congratulate user",
			zap.Int64("user_id", user.UserID),
			zap.String("path", path),
			zap.Error(err),
		)
		return false, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}

	s.notifyAdmins(ctx, deliveryText(user, gift, s.clock.Now()))
	s.obsMetrics.RecordGiftDelivery(ctx, path)
	s.log.Info("gift delivery requested", zap.Int64("user_id", user.UserID), zap.String("path", path))
	return true, nil
}

// markGiftSent flips gift_sent and, on the first flip only, books the gift in
// the ledger. The ledger row never changes the balance.
func (s *Service) markGiftSent(ctx context.Context, userID int64) (bool, error) {
	transitioned, err := s.users.MarkGiftSent(ctx, userID)
	if errors.Is(err, userdomain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !transitioned {
		return false, nil
	}

	gift := s.gift.Get()
	if _, err := s.ledger.RecordGift(ctx, userID, gift.StarsPerGift, gift.Type); err != nil {
		s.log.Error("gift marked sent but not booked", zap.Int64("user_id", userID), zap.Error(err))
		return true, err
	}
	return true, nil
}

func (s *Service) notifyAdmins(ctx context.Context, text string) {
	for _, adminID := range s.cfg.AdminIDs {
		if err := s.bot.SendMessage(ctx, adminID, text, nil); err != nil {
			s.log.Warn("failed to notify admin", zap.Int64("admin_id", adminID), zap.Error(err))
		}
	}
}

func (s *Service) authorize(ctx context.Context, actorID int64, action string) error {
	err := s.authz.Authorize(ctx, actorID, action)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authorization.ErrForbidden), errors.Is(err, authorization.ErrInvalidActor):
		return domain.ErrForbidden
	default:
		return err
	}
}

func (s *Service) congratulationText(ctx context.Context, user userdomain.User, gift config.GiftConfig) string {
	message, err := s.settings.Get(ctx, settingdomain.KeyGiftMessage)
	if err != nil && !errors.Is(err, settingdomain.ErrNotFound) {
		s.log.Warn("gift message unavailable, using default", zap.Error(err))
	}
	return congratulationText(user, gift, message)
}

func mapRequestErr(err error) error {
	switch {
	case errors.Is(err, subscriptiondomain.ErrNotFound), errors.Is(err, subscriptiondomain.ErrInvalidID):
		return domain.ErrRequestNotFound
	case errors.Is(err, subscriptiondomain.ErrAlreadyProcessed):
		return domain.ErrAlreadyProcessed
	}
	return err
}

func mapLedgerErr(err error) error {
	if errors.Is(err, ledgerdomain.ErrInvalidAmount) {
		return domain.ErrInvalidAmount
	}
	return err
}
