package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smallbiznis/giftbot/internal/config"
	"github.com/smallbiznis/giftbot/internal/giveaway/domain"
	ledgerdomain "github.com/smallbiznis/giftbot/internal/ledger/domain"
	"github.com/smallbiznis/giftbot/internal/providers/telegram"
	subscriptiondomain "github.com/smallbiznis/giftbot/internal/subscription/domain"
	userdomain "github.com/smallbiznis/giftbot/internal/user/domain"
)

// Callback data understood by the dispatcher.
const (
	cbCheckSubscription  = "check_subscription"
	cbAdminRequests      = "admin_requests"
	cbAdminAutoApproval  = "admin_auto_approval"
	cbAdminStats         = "admin_stats"
	cbAdminStars         = "admin_stars"
	cbAdminBack          = "admin_back"
	cbToggleAutoApproval = "toggle_auto_approval"

	cbApprovePrefix  = "approve_"
	cbRejectPrefix   = "reject_"
	cbAddStarsPrefix = "add_stars_"
)

const (
	requestsMenuLimit = 5
	recentGiftsLimit  = 10
	dateLayout        = "02.01.2006 15:04"
)

const (
	textNoPermission         = "❌ You do not have administrator rights."
	textNoPermissionShort    = "❌ No administrator rights"
	textTryLater             = "❌ Something went wrong. Please try again later."
	textRequestFailed        = "❌ Could not create your request. Please try again later."
	textAlreadySubscribed    = "✅ You are already subscribed and received your gift! 🎁"
	textRequestPending       = "📝 Your request was sent to the administrators. Please wait for approval! ⏳"
	textUserNotFound         = "❌ You are not registered yet. Send /start first."
	textNotSubscribed        = "❌ You are not subscribed to the channel. Please subscribe and try again."
	textGiftOnTheWay         = "🎉 Request approved! An administrator will send you the gift! 🐻"
	textGiftAlreadySent      = "✅ You have already received your gift! 🎁"
	textApprovedNotDelivered = "🎉 Request approved! We could not send you the details, an administrator will contact you."
	textRequestRejected      = "❌ Request rejected."
	textApprovedDelivered    = "✅ Request approved! Gift notification sent."
	textApprovedNoNotice     = "✅ Request approved. No gift notification was sent."
	textCheckFailed          = "❌ Could not check your subscription. Please try again later."
	textNoPendingRequests    = "📋 No pending requests."
	textRequestNotFound      = "❌ Request not found"
	textAlreadyProcessed     = "ℹ️ Request already processed"
	textInvalidUserID        = "❌ Invalid user id format."
	textInvalidAmount        = "❌ The amount must be a positive whole number."
	textAutoApprovalUsage    = "Usage: /auto_approval on|off"
	textGiftSentUsage        = "Usage: /gift_sent <user_id>\nExample: /gift_sent 123456789"
	textAddStarsUsage        = "Usage: /add_stars <amount> [note]"
	textSubtractStarsUsage   = "Usage: /subtract_stars <amount> [note]"
)

func onOff(enabled bool) string {
	if enabled {
		return "✅ Enabled"
	}
	return "❌ Disabled"
}

func yesNo(ok bool, yes, no string) string {
	if ok {
		return "✅ " + yes
	}
	return "❌ " + no
}

func welcomeView(user userdomain.User, cfg config.Config, gift config.GiftConfig) (string, telegram.Keyboard) {
	name := user.FirstName
	if name == "" {
		name = user.DisplayName()
	}
	text := fmt.Sprintf(`👋 Hi, %s!

🎁 Welcome to the gift bot!

To get a %s you need to:
1️⃣ Subscribe to our channel: %s
2️⃣ Press "Check subscription" below

Once your subscription is confirmed you will receive your gift! 🎉`,
		name, gift.Name, channelHandle(cfg))

	kb := telegram.Keyboard{
		telegram.Row(telegram.URLButton("📺 Open channel", cfg.ChannelURL())),
		telegram.Row(telegram.DataButton("✅ Check subscription", cbCheckSubscription)),
	}
	return text, kb
}

func helpText(cfg config.Config, gift config.GiftConfig) string {
	return fmt.Sprintf(`🤖 Bot help:

📋 Commands:
/start - Start using the bot
/subscribe - Request your gift
/status - Show your subscription status
/help - Show this help

🎁 How to get the gift:
1. Subscribe to %s
2. Press "Check subscription"
3. Receive your %s!

❓ Questions? Contact an administrator.`, channelHandle(cfg), gift.Name)
}

func adminHelpText() string {
	return `🔧 Admin commands:
/admin - Admin panel
/balance - Stars balance
/requests - Pending requests
/auto_approval on|off - Toggle auto-approval
/gift_sent <user_id> - Mark a gift as delivered
/stats - Statistics
/gifts - Recently delivered gifts
/add_stars <amount> [note] - Add stars
/subtract_stars <amount> [note] - Subtract stars`
}

func statusText(user userdomain.User) string {
	var b strings.Builder
	b.WriteString("📊 Your status:\n\n")
	fmt.Fprintf(&b, "🆔 ID: %d\n", user.UserID)
	fmt.Fprintf(&b, "👤 Name: %s\n", strings.TrimSpace(user.FirstName+" "+user.LastName))
	if user.Username != "" {
		fmt.Fprintf(&b, "👤 Username: @%s\n", user.Username)
	}
	fmt.Fprintf(&b, "📺 Channel subscription: %s\n", yesNo(user.IsSubscribed, "Subscribed", "Not subscribed"))
	fmt.Fprintf(&b, "🎁 Gift: %s\n", yesNo(user.GiftSent, "Received", "Not received"))
	fmt.Fprintf(&b, "📅 Registered: %s", user.CreatedAt.Format(dateLayout))
	return b.String()
}

func adminPanelView(o domain.Overview) (string, telegram.Keyboard) {
	text := fmt.Sprintf(`🔧 Admin panel:

🔄 Auto-approval: %s
📋 Pending requests: %d

Choose an action:`, onOff(o.AutoApproval), o.Pending)

	kb := telegram.Keyboard{
		telegram.Row(telegram.DataButton("📋 Subscription requests", cbAdminRequests)),
		telegram.Row(telegram.DataButton("🔄 Auto-approval", cbAdminAutoApproval)),
		telegram.Row(telegram.DataButton("📊 Statistics", cbAdminStats)),
		telegram.Row(telegram.DataButton("⭐ Stars", cbAdminStars)),
	}
	return text, kb
}

func backKeyboard() telegram.Keyboard {
	return telegram.Keyboard{telegram.Row(telegram.DataButton("🔙 Back", cbAdminBack))}
}

func requestsMenuView(page domain.PendingPage) (string, telegram.Keyboard) {
	if len(page.Items) == 0 {
		return textNoPendingRequests, backKeyboard()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Subscription requests (%d pending):\n\n", page.Total)
	kb := make(telegram.Keyboard, 0, len(page.Items)+1)
	for _, req := range page.Items {
		id := strconv.FormatInt(req.ID, 10)
		fmt.Fprintf(&b, "🆔 %d: %s\n", req.ID, requestLabel(req))
		kb = append(kb, telegram.Row(
			telegram.DataButton("✅ "+id, cbApprovePrefix+id),
			telegram.DataButton("❌ "+id, cbRejectPrefix+id),
		))
	}
	kb = append(kb, backKeyboard()...)
	return b.String(), kb
}

func requestsListText(page domain.PendingPage) string {
	if len(page.Items) == 0 {
		return textNoPendingRequests
	}
	var b strings.Builder
	b.WriteString("📋 Pending subscription requests:\n")
	for _, req := range page.Items {
		b.WriteString("\n")
		fmt.Fprintf(&b, "🆔 ID: %d\n", req.ID)
		fmt.Fprintf(&b, "👤 User: %s\n", strings.TrimSpace(req.FirstNameOrEmpty()+" "+req.LastNameOrEmpty()))
		fmt.Fprintf(&b, "🆔 User ID: %d\n", req.UserID)
		fmt.Fprintf(&b, "👤 Username: %s\n", usernameOr(req.UsernameOrEmpty(), "not set"))
		fmt.Fprintf(&b, "📅 Date: %s\n", req.CreatedAt.Format(dateLayout))
	}
	return b.String()
}

func autoApprovalMenuView(enabled bool) (string, telegram.Keyboard) {
	text := fmt.Sprintf("🔄 Request auto-approval\n\nCurrent status: %s\n\nChoose an action:", onOff(enabled))
	kb := telegram.Keyboard{
		telegram.Row(telegram.DataButton("🔄 Toggle", cbToggleAutoApproval)),
		telegram.Row(telegram.DataButton("🔙 Back", cbAdminBack)),
	}
	return text, kb
}

func statsText(s domain.Stats) string {
	return fmt.Sprintf(`📊 Bot statistics:

🎁 Gifts sent: %d
⭐ Stars spent on gifts: %d
📋 Pending requests: %d
🔄 Auto-approval: %s
💰 Stars balance: %d

💡 Cost of one gift: %d stars
⭐ Stars are deducted manually when gifts are sent`,
		s.TotalGifts, s.StarsOnGifts, s.Pending, onOff(s.AutoApproval), s.Balance, s.StarsPerGift)
}

func starsMenuView(balance int64, amounts []int64) (string, telegram.Keyboard) {
	text := fmt.Sprintf("⭐ Stars management\n\nCurrent balance: %d\n\nChoose an action:", balance)
	kb := make(telegram.Keyboard, 0, len(amounts)+1)
	for _, amount := range amounts {
		n := strconv.FormatInt(amount, 10)
		kb = append(kb, telegram.Row(telegram.DataButton("➕ Add "+n, cbAddStarsPrefix+n)))
	}
	kb = append(kb, backKeyboard()...)
	return text, kb
}

func giftsText(gifts []ledgerdomain.Entry) string {
	if len(gifts) == 0 {
		return "🎁 No gifts sent yet."
	}
	var b strings.Builder
	b.WriteString("🎁 Recently sent gifts:\n\n")
	for _, g := range gifts {
		user := "unknown"
		if g.UserID != nil {
			user = strconv.FormatInt(*g.UserID, 10)
		}
		giftType := "-"
		if g.GiftType != nil {
			giftType = *g.GiftType
		}
		fmt.Fprintf(&b, "• %s: user %s, %s, %d ⭐\n", g.CreatedAt.Format(dateLayout), user, giftType, g.Amount)
	}
	return b.String()
}

func requestLabel(req subscriptiondomain.Request) string {
	name := req.FirstNameOrEmpty()
	if name == "" {
		name = "user " + strconv.FormatInt(req.UserID, 10)
	}
	return fmt.Sprintf("%s (%s)", name, usernameOr(req.UsernameOrEmpty(), "no username"))
}

func usernameOr(username, fallback string) string {
	if username == "" {
		return fallback
	}
	return "@" + username
}

func channelHandle(cfg config.Config) string {
	_, handle := cfg.ChannelChat()
	if handle != "" {
		return handle
	}
	return cfg.ChannelURL()
}
