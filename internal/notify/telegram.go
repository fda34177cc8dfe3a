// Package notify posts operational notifications to a Telegram chat.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier announces completed authorizations. A nil *Telegram is a valid
// no-op notifier, so callers never need to branch on configuration.
type Notifier interface {
	AuthSucceeded(provider string)
}

// Telegram sends one-line messages to a fixed chat via the Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates a notifier for the given bot token and chat.
func NewTelegram(botToken string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// AuthSucceeded posts a short notice that a provider flow completed.
// Delivery is best effort; failures are swallowed.
func (t *Telegram) AuthSucceeded(provider string) {
	if t == nil {
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("%s authentication completed", provider))
	_, _ = t.bot.Send(msg)
}
