package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestSender_Send(t *testing.T) {
	bot := &fakeBot{}
	s := &Sender{bot: bot, chatID: -10042}

	require.NoError(t, s.Send(context.Background(), "hours2days warning", "ABCD049 gps-nav unfinished"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(-10042), bot.sent[0].ChatID)
	assert.Equal(t, "hours2days warning\n\nABCD049 gps-nav unfinished", bot.sent[0].Text)
	assert.True(t, bot.sent[0].DisableWebPagePreview)
	assert.Equal(t, "telegram", s.Name())
}

func TestSender_SendError(t *testing.T) {
	s := &Sender{bot: &fakeBot{err: errors.New("Forbidden: bot was blocked")}, chatID: 7}
	err := s.Send(context.Background(), "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestSender_CancelledContext(t *testing.T) {
	bot := &fakeBot{}
	s := &Sender{bot: bot, chatID: 7}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Send(ctx, "s", "b"), context.Canceled)
	assert.Empty(t, bot.sent)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("ø", 5000)
	got := truncate(long, maxMessageLen)
	assert.Equal(t, maxMessageLen, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}
