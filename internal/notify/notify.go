// Package notify delivers digest and alert text to a configured sink.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taipulse/internal/config"
)

// Notifier delivers one text message. Callers treat delivery failures as
// log-worthy, not fatal.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// ---------------------------------------------------------------------------
// Telegram sink
// ---------------------------------------------------------------------------

// Telegram sends messages to a fixed chat through the Bot API.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

var _ Notifier = (*Telegram)(nil)

// NewTelegram authenticates against the Bot API.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log.With("component", "notify")}, nil
}

// Send delivers one message.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Send(buildMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.log.Info("telegram message sent", "chars", len([]rune(text)))
	return nil
}

// buildMessage escapes the text so stray markup in headlines cannot break
// the HTML parse mode.
func buildMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, html.EscapeString(text))
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}

// ---------------------------------------------------------------------------
// Logger sink
// ---------------------------------------------------------------------------

// Log writes messages to the logger. It stands in when no Telegram token is
// configured.
type Log struct {
	log *slog.Logger
}

var _ Notifier = (*Log)(nil)

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log.With("component", "notify")}
}

func (l *Log) Send(_ context.Context, text string) error {
	l.log.Info("notification", "text", text)
	return nil
}

// FromConfig picks the sink: Telegram when a token is configured, the
// logger otherwise.
func FromConfig(cfg config.Telegram, log *slog.Logger) (Notifier, error) {
	if cfg.Token == "" {
		return NewLog(log), nil
	}
	return NewTelegram(cfg.Token, cfg.ChatID, log)
}
