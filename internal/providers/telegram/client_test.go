package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBotAPI struct {
	mu    sync.Mutex
	calls []string
	forms map[string][]map[string]string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := path.Base(r.URL.Path)

	f.mu.Lock()
	f.calls = append(f.calls, method)
	if f.forms == nil {
		f.forms = map[string][]map[string]string{}
	}
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	f.forms[method] = append(f.forms[method], form)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":100,"is_bot":true,"first_name":"Gift","username":"gift_bot"}}`)
	case "sendMessage":
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":%s,"type":"private"},"text":"ok"}}`, form["chat_id"])
	case "editMessageText":
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`)
	case "answerCallbackQuery":
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	case "getChatMember":
		switch form["user_id"] {
		case "1":
			fmt.Fprint(w, `{"ok":true,"result":{"user":{"id":1,"is_bot":false,"first_name":"A"},"status":"member"}}`)
		case "404":
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: user not found"}`)
		default:
			fmt.Fprint(w, `{"ok":false,"error_code":500,"description":"Internal Server Error"}`)
		}
	default:
		fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	}
}

func (f *fakeBotAPI) lastForm(method string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	forms := f.forms[method]
	if len(forms) == 0 {
		return nil
	}
	return forms[len(forms)-1]
}

func newTestClient(t *testing.T) (*Client, *fakeBotAPI) {
	t.Helper()
	fake := &fakeBotAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{
		Token:           "123:abc",
		Endpoint:        srv.URL + "/bot%s/%s",
		PollTimeout:     1,
		SendRate:        1000,
		SendBurst:       10,
		ChannelUsername: "@giveaways",
	}, zap.NewNop(), nil)
	require.NoError(t, err)
	return client, fake
}

func TestClientAuthorizesOnStart(t *testing.T) {
	client, _ := newTestClient(t)
	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gift_bot", me.Username)
	assert.True(t, me.IsBot)
}

func TestClientSendMessage(t *testing.T) {
	client, fake := newTestClient(t)

	err := client.SendMessage(context.Background(), 5, "hello", Keyboard{Row(DataButton("Check", "check_subscription"))})
	require.NoError(t, err)

	form := fake.lastForm("sendMessage")
	require.NotNil(t, form)
	assert.Equal(t, "5", form["chat_id"])
	assert.Equal(t, "hello", form["text"])
	assert.Contains(t, form["reply_markup"], "check_subscription")
}

func TestClientEditIgnoresNotModified(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.EditMessage(context.Background(), 5, 1, "same", nil))
}

func TestClientAnswerCallback(t *testing.T) {
	client, fake := newTestClient(t)
	require.NoError(t, client.AnswerCallback(context.Background(), "cb-1", "done", true))
	form := fake.lastForm("answerCallbackQuery")
	assert.Equal(t, "cb-1", form["callback_query_id"])
	assert.Equal(t, "true", form["show_alert"])
}

func TestClientChatMemberStatus(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	status, err := client.ChatMemberStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, MemberMember, status)
	assert.Equal(t, "@giveaways", fake.lastForm("getChatMember")["chat_id"])

	status, err = client.ChatMemberStatus(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, MemberLeft, status)

	_, err = client.ChatMemberStatus(ctx, 500)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClientRespectsCancelledContext(t *testing.T) {
	client, _ := newTestClient(t)
	client.limiter.SetBurst(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := client.SendMessage(ctx, 5, "hello", nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransport)
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(&fakeBotAPI{})
	t.Cleanup(srv.Close)

	me, err := Probe(context.Background(), "123:abc", srv.URL+"/bot%s/%s", time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(100), me.ID)
}
