package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"SignalSentinel/internal/logger"
)

// maxMessageRunes is Telegram's message length limit.
const maxMessageRunes = 4096

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	bot           *tgbotapi.BotAPI
	ChatID        int64
	RetryInterval time.Duration
	log           zerolog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support. It
// checks the token with getMe.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL string) (*TelegramNotifier, error) {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 45 * time.Second, Transport: transport}
	return newTelegramNotifier(botToken, tgbotapi.APIEndpoint, chatID, client)
}

func newTelegramNotifier(botToken, endpoint string, chatID int64, client tgbotapi.HTTPClient) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	l := logger.Component("telegram")
	l.Info().Str("bot", bot.Self.UserName).Int64("chat_id", chatID).Msg("telegram bot authorized")
	return &TelegramNotifier{bot: bot, ChatID: chatID, RetryInterval: time.Second, log: l}, nil
}

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	if t.ChatID == 0 {
		return errors.New("telegram chat id is not configured")
	}
	return t.SendTo(t.ChatID, text)
}

// SendTo sends an HTML message to chatID.
func (t *TelegramNotifier) SendTo(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, clip(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message to the configured chat with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries uint64) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := t.Send(text)
		if err != nil {
			t.log.Warn().Err(err).Int("attempt", attempt).Msg("telegram send failed")
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.RetryInterval
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)); err != nil {
		return fmt.Errorf("all %d attempts failed: %w", attempt, err)
	}
	return nil
}

func clip(text string) string {
	if utf8.RuneCountInString(text) <= maxMessageRunes {
		return text
	}
	r := []rune(text)
	return string(r[:maxMessageRunes-1]) + "…"
}
