package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandHandler is called for each incoming text message and returns the
// HTML reply, or "" for no reply.
type CommandHandler func(ctx context.Context, text string) string

// StartPolling long-polls for messages and replies in the sender's chat.
// When ChatID is set, messages from any other chat are ignored.
// Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	t.log.Info().Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			t.log.Info().Msg("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
				continue
			}
			if t.ChatID != 0 && msg.Chat.ID != t.ChatID {
				t.log.Warn().Int64("chat_id", msg.Chat.ID).Msg("ignoring message from unknown chat")
				continue
			}
			text := strings.TrimSpace(msg.Text)
			t.log.Info().Int64("chat_id", msg.Chat.ID).Str("text", text).Msg("received command")

			reply := handler(ctx, text)
			if reply == "" {
				continue
			}
			if err := t.SendTo(msg.Chat.ID, reply); err != nil {
				t.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("send reply")
			}
		}
	}
}
