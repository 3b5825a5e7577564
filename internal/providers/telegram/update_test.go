package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAPICommand(t *testing.T) {
	upd := tgbotapi.Update{
		UpdateID: 7,
		Message: &tgbotapi.Message{
			MessageID: 3,
			From:      &tgbotapi.User{ID: 1, UserName: "alice", FirstName: "Alice"},
			Chat:      &tgbotapi.Chat{ID: 1, Type: "private"},
			Text:      "/gift_sent@GiftBot 42",
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 18}},
		},
	}

	got, ok := FromAPI(upd)
	require.True(t, ok)
	require.NotNil(t, got.Message)
	assert.Nil(t, got.Callback)
	assert.Equal(t, 7, got.ID)
	assert.Equal(t, "gift_sent", got.Message.Command)
	assert.Equal(t, "42", got.Message.Args)
	assert.Equal(t, "alice", got.Message.From.Username)
	assert.Equal(t, int64(1), got.ChatID())
	assert.Equal(t, int64(1), got.UserID())
}

func TestFromAPIPlainText(t *testing.T) {
	got, ok := FromAPI(tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 1},
			Chat: &tgbotapi.Chat{ID: 1},
			Text: "hello",
		},
	})
	require.True(t, ok)
	assert.Empty(t, got.Message.Command)
	assert.Equal(t, "hello", got.Message.Text)
}

func TestFromAPICallback(t *testing.T) {
	got, ok := FromAPI(tgbotapi.Update{
		UpdateID: 9,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: 999, FirstName: "Admin"},
			Data: " approve_5 ",
			Message: &tgbotapi.Message{
				MessageID: 12,
				Chat:      &tgbotapi.Chat{ID: 999},
			},
		},
	})
	require.True(t, ok)
	require.NotNil(t, got.Callback)
	assert.Equal(t, "approve_5", got.Callback.Data)
	assert.Equal(t, 12, got.Callback.MessageID)
	assert.Equal(t, int64(999), got.ChatID())
}

func TestFromAPIDropsUnsupported(t *testing.T) {
	cases := map[string]tgbotapi.Update{
		"empty":        {},
		"sticker only": {Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}}},
		"no sender":    {Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "hi"}},
		"channel post": {ChannelPost: &tgbotapi.Message{Text: "news"}},
	}
	for name, upd := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := FromAPI(upd)
			assert.False(t, ok)
		})
	}
}

func TestKeyboardToAPI(t *testing.T) {
	assert.Nil(t, keyboardToAPI(nil))
	assert.Nil(t, keyboardToAPI(Keyboard{{}}))

	markup := keyboardToAPI(Keyboard{
		Row(URLButton("Channel", "https://t.me/giveaways")),
		Row(DataButton("Approve", "approve_1"), DataButton("Reject", "reject_1")),
	})
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 2)
	require.NotNil(t, markup.InlineKeyboard[0][0].URL)
	assert.Equal(t, "https://t.me/giveaways", *markup.InlineKeyboard[0][0].URL)
	require.NotNil(t, markup.InlineKeyboard[1][1].CallbackData)
	assert.Equal(t, "reject_1", *markup.InlineKeyboard[1][1].CallbackData)
}

func TestMemberStatusIsSubscribed(t *testing.T) {
	for _, s := range []MemberStatus{MemberCreator, MemberAdministrator, MemberMember} {
		assert.True(t, s.IsSubscribed(), s)
	}
	for _, s := range []MemberStatus{MemberLeft, MemberKicked, MemberRestricted, ""} {
		assert.False(t, s.IsSubscribed(), s)
	}
}

func TestNoOpProviderReportsLeft(t *testing.T) {
	var p Provider = &NoOpProvider{}
	ctx := context.Background()

	require.NoError(t, p.SendMessage(ctx, 1, "hi", nil))
	require.NoError(t, p.AnswerCallback(ctx, "cb", "", false))
	status, err := p.ChatMemberStatus(ctx, 1)
	require.NoError(t, err)
	assert.False(t, status.IsSubscribed())
}
