package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Message struct {
	ID     int
	ChatID int64
	From   User
	Text   string
	// Command is set for /commands, without the slash or @botname suffix.
	Command string
	Args    string
}

type Callback struct {
	ID        string
	From      User
	ChatID    int64
	MessageID int
	Data      string
}

// Update carries exactly one of Message or Callback.
type Update struct {
	ID       int
	Message  *Message
	Callback *Callback
}

func (u Update) ChatID() int64 {
	switch {
	case u.Message != nil:
		return u.Message.ChatID
	case u.Callback != nil:
		if u.Callback.ChatID != 0 {
			return u.Callback.ChatID
		}
		return u.Callback.From.ID
	}
	return 0
}

func (u Update) UserID() int64 {
	switch {
	case u.Message != nil:
		return u.Message.From.ID
	case u.Callback != nil:
		return u.Callback.From.ID
	}
	return 0
}

// FromAPI keeps text messages and callback queries; everything else is
// dropped.
func FromAPI(upd tgbotapi.Update) (Update, bool) {
	out := Update{ID: upd.UpdateID}

	switch {
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		if cq.From == nil {
			return Update{}, false
		}
		cb := &Callback{
			ID:   cq.ID,
			From: userFromAPI(cq.From),
			Data: strings.TrimSpace(cq.Data),
		}
		if cq.Message != nil {
			cb.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				cb.ChatID = cq.Message.Chat.ID
			}
		}
		out.Callback = cb
		return out, true

	case upd.Message != nil:
		msg := upd.Message
		if msg.From == nil || msg.Chat == nil || msg.Text == "" {
			return Update{}, false
		}
		m := &Message{
			ID:     msg.MessageID,
			ChatID: msg.Chat.ID,
			From:   userFromAPI(msg.From),
			Text:   msg.Text,
		}
		if msg.IsCommand() {
			m.Command = strings.ToLower(msg.Command())
			m.Args = strings.TrimSpace(msg.CommandArguments())
		}
		out.Message = m
		return out, true
	}

	return Update{}, false
}

func userFromAPI(u *tgbotapi.User) User {
	return User{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.IsBot,
	}
}

func keyboardToAPI(kb Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		if len(buttons) > 0 {
			rows = append(rows, buttons)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
