package telegram

import (
	"context"
	"errors"
)

// Provider is the outbound half of the Bot API used by the workflow.
type Provider interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) error
	AnswerCallback(ctx context.Context, callbackID string, text string, alert bool) error
	// ChatMemberStatus reports the user's status in the configured channel.
	ChatMemberStatus(ctx context.Context, userID int64) (MemberStatus, error)
	Me(ctx context.Context) (User, error)
}

// UpdateSource delivers incoming updates until ctx is cancelled, then closes
// the channel.
type UpdateSource interface {
	Updates(ctx context.Context) <-chan Update
}

var ErrTransport = errors.New("telegram_transport_error")

type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

func Row(buttons ...Button) []Button { return buttons }

func DataButton(text, data string) Button { return Button{Text: text, Data: data} }

func URLButton(text, url string) Button { return Button{Text: text, URL: url} }

type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
}

type MemberStatus string

const (
	MemberCreator       MemberStatus = "creator"
	MemberAdministrator MemberStatus = "administrator"
	MemberMember        MemberStatus = "member"
	MemberRestricted    MemberStatus = "restricted"
	MemberLeft          MemberStatus = "left"
	MemberKicked        MemberStatus = "kicked"
)

func (s MemberStatus) IsSubscribed() bool {
	switch s {
	case MemberCreator, MemberAdministrator, MemberMember:
		return true
	}
	return false
}

type NoOpProvider struct{}

func (p *NoOpProvider) SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) error {
	return nil
}

func (p *NoOpProvider) EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) error {
	return nil
}

func (p *NoOpProvider) AnswerCallback(ctx context.Context, callbackID string, text string, alert bool) error {
	return nil
}

func (p *NoOpProvider) ChatMemberStatus(ctx context.Context, userID int64) (MemberStatus, error) {
	return MemberLeft, nil
}

func (p *NoOpProvider) Me(ctx context.Context) (User, error) {
	return User{}, nil
}
