package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smallbiznis/giftbot/internal/authorization"
	"github.com/smallbiznis/giftbot/internal/config"
	"github.com/smallbiznis/giftbot/internal/giveaway/domain"
	obslogger "github.com/smallbiznis/giftbot/internal/observability/logger"
	"github.com/smallbiznis/giftbot/internal/providers/telegram"
	userdomain "github.com/smallbiznis/giftbot/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type HandlerParams struct {
	fx.In

	Log      *zap.Logger
	Config   config.Config
	Gift     *config.GiftConfigHolder
	Authz    authorization.Authorizer
	Giveaway domain.Service
	Bot      telegram.Provider
}

// Handler maps commands and callback data onto giveaway operations.
type Handler struct {
	log      *zap.Logger
	cfg      config.Config
	gift     *config.GiftConfigHolder
	authz    authorization.Authorizer
	giveaway domain.Service
	bot      telegram.Provider

	commands  map[string]commandFunc
	callbacks map[string]callbackFunc
}

type commandFunc func(ctx context.Context, msg *telegram.Message) error

type callbackFunc func(ctx context.Context, cb *telegram.Callback) (answer string, alert bool, err error)

func NewHandler(p HandlerParams) *Handler {
	h := &Handler{
		log:      p.Log.Named("bot.handler"),
		cfg:      p.Config,
		gift:     p.Gift,
		authz:    p.Authz,
		giveaway: p.Giveaway,
		bot:      p.Bot,
	}

	h.commands = map[string]commandFunc{
		"start":     h.start,
		"help":      h.help,
		"subscribe": h.subscribe,
		"status":    h.status,

		"admin":          h.adminOnly(h.adminPanel),
		"balance":        h.adminOnly(h.balance),
		"requests":       h.adminOnly(h.requests),
		"auto_approval":  h.adminOnly(h.autoApproval),
		"gift_sent":      h.adminOnly(h.giftSent),
		"stats":          h.adminOnly(h.stats),
		"gifts":          h.adminOnly(h.gifts),
		"add_stars":      h.adminOnly(h.addStars),
		"subtract_stars": h.adminOnly(h.subtractStars),
	}

	h.callbacks = map[string]callbackFunc{
		cbCheckSubscription:  h.checkSubscription,
		cbAdminRequests:      h.adminCallback(h.requestsMenu),
		cbAdminAutoApproval:  h.adminCallback(h.autoApprovalMenu),
		cbAdminStats:         h.adminCallback(h.statsMenu),
		cbAdminStars:         h.adminCallback(h.starsMenu),
		cbAdminBack:          h.adminCallback(h.adminPanelMenu),
		cbToggleAutoApproval: h.adminCallback(h.toggleAutoApproval),
	}
	return h
}

// Handle processes one update. Text that is not a known command is ignored.
func (h *Handler) Handle(ctx context.Context, upd telegram.Update) error {
	switch {
	case upd.Callback != nil:
		return h.handleCallback(ctx, upd.Callback)
	case upd.Message != nil && upd.Message.Command != "":
		cmd, ok := h.commands[upd.Message.Command]
		if !ok {
			return nil
		}
		return cmd(ctx, upd.Message)
	}
	return nil
}

func (h *Handler) handleCallback(ctx context.Context, cb *telegram.Callback) error {
	fn := h.resolveCallback(cb.Data)
	if fn == nil {
		return h.bot.AnswerCallback(ctx, cb.ID, "", false)
	}

	answer, alert, err := fn(ctx, cb)
	if err != nil {
		h.logger(ctx).Error("callback failed", zap.String("data", cb.Data), zap.Error(err))
		answer, alert = textTryLater, true
	}
	if ansErr := h.bot.AnswerCallback(ctx, cb.ID, answer, alert); ansErr != nil {
		return errors.Join(err, ansErr)
	}
	return err
}

func (h *Handler) resolveCallback(data string) callbackFunc {
	if fn, ok := h.callbacks[data]; ok {
		return fn
	}

	prefixed := []struct {
		prefix string
		fn     func(ctx context.Context, cb *telegram.Callback, n int64) (string, bool, error)
	}{
		{cbApprovePrefix, h.approve},
		{cbRejectPrefix, h.reject},
		{cbAddStarsPrefix, h.addStarsQuick},
	}
	for _, p := range prefixed {
		raw, ok := strings.CutPrefix(data, p.prefix)
		if !ok {
			continue
		}
		fn := p.fn
		return h.adminCallback(func(ctx context.Context, cb *telegram.Callback) (string, bool, error) {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n <= 0 {
				return "", false, nil
			}
			return fn(ctx, cb, n)
		})
	}
	return nil
}

func (h *Handler) adminOnly(next commandFunc) commandFunc {
	return func(ctx context.Context, msg *telegram.Message) error {
		if !h.authz.IsAdmin(ctx, msg.From.ID) {
			h.logger(ctx).Info("admin command refused", zap.String("command", msg.Command))
			return h.reply(ctx, msg, textNoPermission, nil)
		}
		return next(ctx, msg)
	}
}

func (h *Handler) adminCallback(next callbackFunc) callbackFunc {
	return func(ctx context.Context, cb *telegram.Callback) (string, bool, error) {
		if !h.authz.IsAdmin(ctx, cb.From.ID) {
			h.logger(ctx).Info("admin callback refused", zap.String("data", cb.Data))
			return textNoPermissionShort, true, nil
		}
		return next(ctx, cb)
	}
}

func (h *Handler) start(ctx context.Context, msg *telegram.Message) error {
	user, err := h.giveaway.Register(ctx, requester(msg.From))
	if err != nil {
		h.logger(ctx).Error("register failed", zap.Error(err))
		return h.reply(ctx, msg, textTryLater, nil)
	}
	text, kb := welcomeView(user, h.cfg, h.gift.Get())
	return h.reply(ctx, msg, text, kb)
}

func (h *Handler) help(ctx context.Context, msg *telegram.Message) error {
	text := helpText(h.cfg, h.gift.Get())
	if h.authz.IsAdmin(ctx, msg.From.ID) {
		text += "\n\n" + adminHelpText()
	}
	return h.reply(ctx, msg, text, nil)
}

func (h *Handler) subscribe(ctx context.Context, msg *telegram.Message) error {
	res, err := h.giveaway.RequestGift(ctx, requester(msg.From))
	if err != nil {
		h.logger(ctx).Error("gift request failed", zap.Error(err))
		return h.reply(ctx, msg, textRequestFailed, nil)
	}

	switch res.Outcome {
	case domain.OutcomeAlreadySubscribed:
		return h.reply(ctx, msg, textAlreadySubscribed, nil)
	case domain.OutcomePending:
		return h.reply(ctx, msg, textRequestPending, nil)
	case domain.OutcomeGiftAlreadySent:
		return h.reply(ctx, msg, textGiftAlreadySent, nil)
	}
	if !res.Delivered {
		return h.reply(ctx, msg, textApprovedNotDelivered, nil)
	}
	// The congratulation message is the reply.
	return nil
}

func (h *Handler) status(ctx context.Context, msg *telegram.Message) error {
	user, err := h.giveaway.Profile(ctx, msg.From.ID)
	if errors.Is(err, userdomain.ErrNotFound) {
		return h.reply(ctx, msg, textUserNotFound, nil)
	}
	if err != nil {
		h.logger(ctx).Error("profile lookup failed", zap.Error(err))
		return h.reply(ctx, msg, textTryLater, nil)
	}
	return h.reply(ctx, msg, statusText(user), nil)
}

func (h *Handler) adminPanel(ctx context.Context, msg *telegram.Message) error {
	overview, err := h.giveaway.Overview(ctx, msg.From.ID)
	if err != nil {
		return h.replyErr(ctx, msg, err)
	}
	text, kb := adminPanelView(overview)
	return h.reply(ctx, msg, text, kb)
}

func (h *Handler) balance(ctx context.Context, msg *telegram.Message) error {
	balance, err := h.giveaway.Balance(ctx, msg.From.ID)
	if err != nil {
		return h.replyErr(ctx, msg, err)
	}
	return h.reply(ctx, msg, fmt.Sprintf("⭐ Current stars balance: %d", balance), nil)
}

func (h *Handler) requests(ctx context.Context, msg *telegram.Message) error {
	page, err := h.giveaway.PendingRequests(ctx, msg.From.ID, 0)
	if err != nil {
		return h.replyErr(ctx, msg, err)
	}
	return h.reply(ctx, msg, requestsListText(page), nil)
}

func (h *Handler) autoApproval(ctx context.Context, msg *telegram.Message) error {
	var enabled bool
	switch strings.ToLower(strings.TrimSpace(msg.Args)) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	case "":
		overview, err := h.giveaway.Overview(ctx, msg.From.ID)
		if err != nil {
			return h.replyErr(ctx, msg, err)
		}
		text := fmt.Sprintf("🔄 Auto-approval: %s\n\n%s", onOff(overview.AutoApproval), textAutoApprovalUsage)
		return h.reply(ctx, msg, text, nil)
	default:
		return h.reply(ctx, msg, textAutoApprovalUsage, nil)
	}

	if err := h.giveaway.SetAutoApproval(ctx, msg.From.ID, enabled); err != nil {
		return h.replyErr(ctx, msg, err)
	}
	if enabled {
		return h.reply(ctx, msg, "✅ Auto-approval enabled!", nil)
	}
	return h.reply(ctx, msg, "❌ Auto-approval disabled!", nil)
}

func (h *Handler) giftSent(ctx context.Context, msg *telegram.Message) error {
	fields := strings.Fields(msg.Args)
	if len(fields) == 0 {
		return h.reply(ctx, msg, textGiftSentUsage, nil)
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || userID <= 0 {
		return h.reply(ctx, msg, textInvalidUserID, nil)
	}

	transitioned, err := h.giveaway.AcknowledgeGift(ctx, msg.From.ID, userID)
	if err != nil {
		return h.replyErr(ctx, msg, err)
	}
	if transitioned {
		return h.reply(ctx, msg, fmt.Sprintf("✅ Gift for user %d marked as sent.", userID), nil)
	}
	return h.reply(ctx, msg, fmt.Sprintf("ℹ️ Gift for user %d was already marked as sent, or the user is unknown.", userID), nil)
}

func (h *Handler) stats(ctx context.Context, msg *telegram.Message) error {
	stats, err := h.giveaway.Stats(ctx, msg.From.ID)
	if err != nil {
		return h.replyErr(ctx, msg, err)
	}
	return h.reply(ctx, msg, statsText(stats), nil)
}

func (h *Handler) gifts(ctx context.Context, msg *telegram.Message) error {
	gifts, err := h.giveaway.RecentGifts(ctx, msg.From.ID, recentGiftsLimit)
	if err != nil {
		return h.replyErr(ctx, msg, err)
	}
	return h.reply(ctx, msg, giftsText(gifts), nil)
}

func (h *Handler) addStars(ctx context.Context, msg *telegram.Message) error {
	amount, note, ok := parseAmount(msg.Args)
	if !ok {
		return h.reply(ctx, msg, textAddStarsUsage, nil)
	}
	balance, err := h.giveaway.AddStars(ctx, msg.From.ID, amount, note)
	if err != nil {
		return h.replyErr(ctx, msg, err)
	}
	return h.reply(ctx, msg, fmt.Sprintf("✅ Added %d stars. Balance: %d", amount, balance), nil)
}

func (h *Handler) subtractStars(ctx context.Context, msg *telegram.Message) error {
	amount, note, ok := parseAmount(msg.Args)
	if !ok {
		return h.reply(ctx, msg, textSubtractStarsUsage, nil)
	}
	balance, err := h.giveaway.SubtractStars(ctx, msg.From.ID, amount, note)
	if err != nil {
		return h.replyErr(ctx, msg, err)
	}
	return h.reply(ctx, msg, fmt.Sprintf("✅ Subtracted %d stars. Balance: %d", amount, balance), nil)
}

func (h *Handler) checkSubscription(ctx context.Context, cb *telegram.Callback) (string, bool, error) {
	res, err := h.giveaway.CheckSubscription(ctx, requester(cb.From))
	if err != nil {
		h.logger(ctx).Warn("subscription check failed", zap.Error(err))
		return "", false, h.edit(ctx, cb, textCheckFailed, nil)
	}

	switch res.Outcome {
	case domain.OutcomeNotSubscribed:
		_, kb := welcomeView(userdomain.User{}, h.cfg, h.gift.Get())
		return "", false, h.edit(ctx, cb, textNotSubscribed, kb)
	case domain.OutcomeGiftDelivered:
		return "", false, h.edit(ctx, cb, textGiftOnTheWay, nil)
	default:
		return "", false, h.edit(ctx, cb, textGiftAlreadySent, nil)
	}
}

func (h *Handler) adminPanelMenu(ctx context.Context, cb *telegram.Callback) (string, bool, error) {
	overview, err := h.giveaway.Overview(ctx, cb.From.ID)
	if err != nil {
		return "", false, err
	}
	text, kb := adminPanelView(overview)
	return "", false, h.edit(ctx, cb, text, kb)
}

func (h *Handler) requestsMenu(ctx context.Context, cb *telegram.Callback) (string, bool, error) {
	page, err := h.giveaway.PendingRequests(ctx, cb.From.ID, requestsMenuLimit)
	if err != nil {
		return "", false, err
	}
	text, kb := requestsMenuView(page)
	return "", false, h.edit(ctx, cb, text, kb)
}

func (h *Handler) autoApprovalMenu(ctx context.Context, cb *telegram.Callback) (string, bool, error) {
	overview, err := h.giveaway.Overview(ctx, cb.From.ID)
	if err != nil {
		return "", false, err
	}
	text, kb := autoApprovalMenuView(overview.AutoApproval)
	return "", false, h.edit(ctx, cb, text, kb)
}

func (h *Handler) statsMenu(ctx context.Context, cb *telegram.Callback) (string, bool, error) {
	stats, err := h.giveaway.Stats(ctx, cb.From.ID)
	if err != nil {
		return "", false, err
	}
	return "", false, h.edit(ctx, cb, statsText(stats), backKeyboard())
}

func (h *Handler) starsMenu(ctx context.Context, cb *telegram.Callback) (string, bool, error) {
	balance, err := h.giveaway.Balance(ctx, cb.From.ID)
	if err != nil {
		return "", false, err
	}
	text, kb := starsMenuView(balance, h.gift.Get().QuickAddAmounts)
	return "", false, h.edit(ctx, cb, text, kb)
}

func (h *Handler) toggleAutoApproval(ctx context.Context, cb *telegram.Callback) (string, bool, error) {
	enabled, err := h.giveaway.ToggleAutoApproval(ctx, cb.From.ID)
	if err != nil {
		return "", false, err
	}
	answer := "✅ Auto-approval disabled!"
	if enabled {
		answer = "✅ Auto-approval enabled!"
	}
	text, kb := autoApprovalMenuView(enabled)
	return answer, false, h.edit(ctx, cb, text, kb)
}

func (h *Handler) approve(ctx context.Context, cb *telegram.Callback, requestID int64) (string, bool, error) {
	return h.decide(ctx, cb, requestID, true)
}

func (h *Handler) reject(ctx context.Context, cb *telegram.Callback, requestID int64) (string, bool, error) {
	return h.decide(ctx, cb, requestID, false)
}

func (h *Handler) decide(ctx context.Context, cb *telegram.Callback, requestID int64, approve bool) (string, bool, error) {
	res, err := h.giveaway.Decide(ctx, cb.From.ID, requestID, approve)
	switch {
	case errors.Is(err, domain.ErrRequestNotFound):
		return textRequestNotFound, true, nil
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return textAlreadyProcessed, true, nil
	case errors.Is(err, domain.ErrForbidden):
		return textNoPermissionShort, true, nil
	case err != nil:
		return "", false, err
	}

	answer := textRequestRejected
	switch {
	case approve && res.Delivered:
		answer = textApprovedDelivered
	case approve:
		answer = textApprovedNoNotice
	}
	if _, _, err := h.requestsMenu(ctx, cb); err != nil {
		h.logger(ctx).Warn("failed to refresh requests menu", zap.Error(err))
	}
	return answer, false, nil
}

func (h *Handler) addStarsQuick(ctx context.Context, cb *telegram.Callback, amount int64) (string, bool, error) {
	_, err := h.giveaway.AddStars(ctx, cb.From.ID, amount, "")
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return textNoPermissionShort, true, nil
	case err != nil:
		return "", false, err
	}
	if _, _, err := h.starsMenu(ctx, cb); err != nil {
		h.logger(ctx).Warn("failed to refresh stars menu", zap.Error(err))
	}
	return fmt.Sprintf("✅ Added %d stars!", amount), false, nil
}

func (h *Handler) reply(ctx context.Context, msg *telegram.Message, text string, kb telegram.Keyboard) error {
	return h.bot.SendMessage(ctx, msg.ChatID, text, kb)
}

// replyErr turns workflow errors into the message the user sees.
func (h *Handler) replyErr(ctx context.Context, msg *telegram.Message, err error) error {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return h.reply(ctx, msg, textNoPermission, nil)
	case errors.Is(err, domain.ErrInvalidAmount):
		return h.reply(ctx, msg, textInvalidAmount, nil)
	case errors.Is(err, domain.ErrInvalidUserID):
		return h.reply(ctx, msg, textInvalidUserID, nil)
	}
	h.logger(ctx).Error("command failed", zap.String("command", msg.Command), zap.Error(err))
	return h.reply(ctx, msg, textTryLater, nil)
}

func (h *Handler) edit(ctx context.Context, cb *telegram.Callback, text string, kb telegram.Keyboard) error {
	if cb.MessageID == 0 {
		return h.bot.SendMessage(ctx, cb.ChatID, text, kb)
	}
	return h.bot.EditMessage(ctx, cb.ChatID, cb.MessageID, text, kb)
}

func (h *Handler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, h.log)
}

func requester(u telegram.User) domain.Requester {
	return domain.Requester{
		UserID:    u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// parseAmount reads "<amount> [note...]".
func parseAmount(args string) (int64, string, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", false
	}
	amount, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || amount <= 0 {
		return 0, "", false
	}
	return amount, strings.Join(fields[1:], " "), true
}
