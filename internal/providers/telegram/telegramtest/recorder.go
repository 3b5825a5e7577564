// Package telegramtest provides an in-memory Provider for workflow tests.
package telegramtest

import (
	"context"
	"sync"

	"github.com/smallbiznis/giftbot/internal/providers/telegram"
)

type Sent struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  telegram.Keyboard
	Edit      bool
}

type Answer struct {
	CallbackID string
	Text       string
	Alert      bool
}

// Recorder captures outbound calls. Members and Fail let tests script
// membership answers and transport failures per chat; FailNext fails only the
// next n sends to a chat.
type Recorder struct {
	mu sync.Mutex

	Members   map[int64]telegram.MemberStatus
	MemberErr error
	Fail      map[int64]error
	FailNext  map[int64]int
	sent      []Sent
	answers   []Answer
}

func NewRecorder() *Recorder {
	return &Recorder{
		Members:  map[int64]telegram.MemberStatus{},
		Fail:     map[int64]error{},
		FailNext: map[int64]int{},
	}
}

func (r *Recorder) SendMessage(ctx context.Context, chatID int64, text string, keyboard telegram.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail[chatID]; err != nil {
		return err
	}
	if r.FailNext[chatID] > 0 {
		r.FailNext[chatID]--
		return telegram.ErrTransport
	}
	r.sent = append(r.sent, Sent{ChatID: chatID, Text: text, Keyboard: keyboard})
	return nil
}

func (r *Recorder) EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard telegram.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail[chatID]; err != nil {
		return err
	}
	r.sent = append(r.sent, Sent{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: keyboard, Edit: true})
	return nil
}

func (r *Recorder) AnswerCallback(ctx context.Context, callbackID string, text string, alert bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, Answer{CallbackID: callbackID, Text: text, Alert: alert})
	return nil
}

func (r *Recorder) ChatMemberStatus(ctx context.Context, userID int64) (telegram.MemberStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MemberErr != nil {
		return "", r.MemberErr
	}
	if status, ok := r.Members[userID]; ok {
		return status, nil
	}
	return telegram.MemberLeft, nil
}

func (r *Recorder) Me(ctx context.Context) (telegram.User, error) {
	return telegram.User{ID: 100, Username: "gift_bot", IsBot: true}, nil
}

// SentTo returns messages delivered or edited in one chat, oldest first.
func (r *Recorder) SentTo(chatID int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (r *Recorder) All() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

func (r *Recorder) Answers() []Answer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Answer(nil), r.answers...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.answers = nil
}

var _ telegram.Provider = (*Recorder)(nil)
