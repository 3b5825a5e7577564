package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/smallbiznis/giftbot/internal/config"
	obsmetrics "github.com/smallbiznis/giftbot/internal/observability/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ClientConfig struct {
	Token           string
	Endpoint        string
	PollTimeout     int
	SendRate        float64
	SendBurst       int
	ChannelID       int64
	ChannelUsername string
}

func ClientConfigFrom(cfg config.Config) ClientConfig {
	channelID, channelUsername := cfg.ChannelChat()
	return ClientConfig{
		Token:           cfg.BotToken,
		Endpoint:        cfg.BotAPIEndpoint,
		PollTimeout:     cfg.BotPollTimeout,
		SendRate:        cfg.BotSendRate,
		SendBurst:       cfg.BotSendBurst,
		ChannelID:       channelID,
		ChannelUsername: channelUsername,
	}
}

// Client talks to the Bot API. Every outbound call except long polling
// waits on a shared limiter.
type Client struct {
	api        *tgbotapi.BotAPI
	cfg        ClientConfig
	limiter    *rate.Limiter
	log        *zap.Logger
	obsMetrics *obsmetrics.Metrics
	stopOnce   sync.Once
}

// NewClient calls getMe, so a bad token fails here rather than at the first
// update.
func NewClient(cfg ClientConfig, log *zap.Logger, obsMetrics *obsmetrics.Metrics) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, config.ErrMissingBotToken
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30
	}

	log = log.Named("telegram.client")
	_ = tgbotapi.SetLogger(botLogger{log: log.Sugar()})

	httpClient := &http.Client{Timeout: time.Duration(cfg.PollTimeout+15) * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("%w: getMe: %w", ErrTransport, err)
	}

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	burst := cfg.SendBurst
	if burst <= 0 {
		burst = 1
	}

	log.Info("bot authorized", zap.String("username", api.Self.UserName), zap.Int64("bot_id", api.Self.ID))
	return &Client{
		api:        api,
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, burst),
		log:        log,
		obsMetrics: obsMetrics,
	}, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if markup := keyboardToAPI(keyboard); markup != nil {
		msg.ReplyMarkup = *markup
	}
	return c.do(ctx, "sendMessage", func() error {
		_, err := c.api.Send(msg)
		return err
	})
}

func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = keyboardToAPI(keyboard)
	err := c.do(ctx, "editMessageText", func() error {
		_, err := c.api.Request(edit)
		return err
	})
	if err != nil && isNotModified(err) {
		return nil
	}
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string, text string, alert bool) error {
	answer := tgbotapi.NewCallback(callbackID, text)
	if alert {
		answer = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	return c.do(ctx, "answerCallbackQuery", func() error {
		_, err := c.api.Request(answer)
		return err
	})
}

func (c *Client) ChatMemberStatus(ctx context.Context, userID int64) (MemberStatus, error) {
	req := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             c.cfg.ChannelID,
			SuperGroupUsername: c.cfg.ChannelUsername,
			UserID:             userID,
		},
	}

	var member tgbotapi.ChatMember
	err := c.do(ctx, "getChatMember", func() error {
		var err error
		member, err = c.api.GetChatMember(req)
		return err
	})
	if err != nil {
		if isUserNotFound(err) {
			return MemberLeft, nil
		}
		return "", err
	}
	return MemberStatus(member.Status), nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var me tgbotapi.User
	err := c.do(ctx, "getMe", func() error {
		var err error
		me, err = c.api.GetMe()
		return err
	})
	if err != nil {
		return User{}, err
	}
	return userFromAPI(&me), nil
}

func (c *Client) Updates(ctx context.Context) <-chan Update {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = c.cfg.PollTimeout
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	raw := c.api.GetUpdatesChan(cfg)
	out := make(chan Update)

	go func() {
		defer close(out)
		defer c.stopOnce.Do(c.api.StopReceivingUpdates)

		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-raw:
				if !ok {
					return
				}
				converted, ok := FromAPI(upd)
				if !ok {
					continue
				}
				select {
				case out <- converted:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	c.log.Info("long polling started", zap.Int("timeout_seconds", cfg.Timeout))
	return out
}

func (c *Client) do(ctx context.Context, method string, call func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := call(); err != nil {
		c.obsMetrics.RecordTransportError(ctx, method)
		return fmt.Errorf("%w: %s: %w", ErrTransport, method, err)
	}
	return nil
}

func isNotModified(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "message is not modified")
}

func isUserNotFound(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "user not found") || strings.Contains(msg, "participant_id_invalid")
}

type botLogger struct {
	log *zap.SugaredLogger
}

func (l botLogger) Println(v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.log.Debugf(format, v...)
}

// Probe checks that the token is accepted by calling getMe once.
func Probe(ctx context.Context, token, endpoint string, timeout time.Duration) (User, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	type result struct {
		user User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
		if err != nil {
			done <- result{err: fmt.Errorf("%w: getMe: %w", ErrTransport, err)}
			return
		}
		done <- result{user: userFromAPI(&api.Self)}
	}()

	select {
	case <-ctx.Done():
		return User{}, ctx.Err()
	case r := <-done:
		return r.user, r.err
	}
}
