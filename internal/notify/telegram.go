package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram posts a short alert to the administrators' chat whenever an
// applicant is verified.
type Telegram struct {
	sender messageSender
	chatID int64
	log    *zap.Logger
}

// NewTelegram connects a bot with token.  It returns nil, nil when token or
// chatID is empty so callers can skip the alerter.
func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newTelegram(b, chatID, log), nil
}

func newTelegram(s messageSender, chatID int64, log *zap.Logger) *Telegram {
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{sender: s, chatID: chatID, log: log}
}

func (t *Telegram) Notify(ctx context.Context, n model.Notification) (bool, error) {
	msg, err := render(n)
	if err != nil {
		return false, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n%s (%s)", html.EscapeString(msg.Subject), html.EscapeString(n.Name), html.EscapeString(n.Recipient))
	for _, k := range sortedKeys(n.Fields) {
		fmt.Fprintf(&b, "\n%s: %s", html.EscapeString(k), html.EscapeString(n.Fields[k]))
	}
	if _, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      b.String(),
		ParseMode: models.ParseModeHTML,
	}); err != nil {
		return false, fmt.Errorf("telegram send: %w", err)
	}
	return true, nil
}
