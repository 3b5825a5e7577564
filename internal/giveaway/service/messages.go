package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/giftbot/internal/config"
	subscriptiondomain "github.com/smallbiznis/giftbot/internal/subscription/domain"
	userdomain "github.com/smallbiznis/giftbot/internal/user/domain"
)

const timeLayout = "02.01.2006 15:04"

func newRequestText(req subscriptiondomain.Request, now time.Time) string {
	var b strings.Builder
	b.WriteString("🔔 New subscription request!\n\n")
	fmt.Fprintf(&b, "👤 User: %s\n", fullName(req.FirstNameOrEmpty(), req.LastNameOrEmpty()))
	fmt.Fprintf(&b, "🆔 ID: %d\n", req.UserID)
	fmt.Fprintf(&b, "👤 Username: %s\n", usernameOrDash(req.UsernameOrEmpty()))
	fmt.Fprintf(&b, "📅 Time: %s\n", now.Format(timeLayout))
	fmt.Fprintf(&b, "🆔 Request ID: %d\n\n", req.ID)
	b.WriteString("Use /requests to review pending requests.")
	return b.String()
}

func deliveryText(user userdomain.User, gift config.GiftConfig, now time.Time) string {
	var b strings.Builder
	b.WriteString("🎁 A GIFT NEEDS TO BE SENT!\n\n")
	fmt.Fprintf(&b, "👤 User: %s\n", fullName(user.FirstName, user.LastName))
	fmt.Fprintf(&b, "🆔 ID: %d\n", user.UserID)
	fmt.Fprintf(&b, "👤 Username: %s\n\n", usernameOrDash(user.Username))
	fmt.Fprintf(&b, "🎁 Gift: %s\n", gift.Name)
	fmt.Fprintf(&b, "⭐ Cost: %d Telegram Stars\n\n", gift.StarsPerGift)
	b.WriteString("📋 Steps:\n")
	step := 1
	for _, s := range gift.DeliverySteps {
		fmt.Fprintf(&b, "%d. %s\n", step, s)
		step++
	}
	fmt.Fprintf(&b, "%d. Confirm with /gift_sent %d\n\n", step, user.UserID)
	fmt.Fprintf(&b, "⏰ Time: %s", now.Format(timeLayout))
	return b.String()
}

func congratulationText(user userdomain.User, gift config.GiftConfig, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		message = fmt.Sprintf("🎉 Congratulations! You received a gift: %s!", gift.Name)
	}
	name := strings.TrimSpace(user.FirstName)
	if name == "" {
		return message + "\n\nAn administrator will send it to you shortly."
	}
	return fmt.Sprintf("%s, %s\n\nAn administrator will send it to you shortly.", name, message)
}

func fullName(first, last string) string {
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		return "unknown"
	}
	return name
}

func usernameOrDash(username string) string {
	if username == "" {
		return "not set"
	}
	return "@" + username
}
