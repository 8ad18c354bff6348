// Package telegram delivers notifications to a Telegram chat.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLen is Telegram's limit on the length of a message body.
const maxMessageLen = 4096

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender posts plain-text messages to one chat.
type Sender struct {
	bot    botAPI
	chatID int64
}

// New authenticates the bot token and returns a Sender for chatID.
func New(token string, chatID int64) (*Sender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate bot: %w", err)
	}
	return &Sender{bot: bot, chatID: chatID}, nil
}

func (s *Sender) Name() string { return "telegram" }

// Send posts subject and body as one message, truncated to the Telegram limit.
func (s *Sender) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(s.chatID, truncate(subject+"\n\n"+body, maxMessageLen))
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: send to %d: %w", s.chatID, err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
