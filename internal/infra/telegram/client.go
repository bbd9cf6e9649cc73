// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/telebot.v3"
)

// chatRecipient addresses a chat by numeric id or @username.
type chatRecipient string

func (r chatRecipient) Recipient() string { return string(r) }

// NewTelebot creates a bot that only sends messages until Start is called.
// apiURL may be empty for the public Bot API.
func NewTelebot(token, apiURL string, onError func(error, telebot.Context)) (*telebot.Bot, error) {
	pref := telebot.Settings{
		Token:   token,
		URL:     apiURL,
		Poller:  &telebot.LongPoller{Timeout: 10 * time.Second},
		Offline: true, // no getMe on startup; commands are optional
		OnError: onError,
	}
	b, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("could not create telegram bot: %w", err)
	}
	return b, nil
}

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a plain text message to the chat.
// telebot has no per-call context; ctx is only checked before sending.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, chatID string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := tba.bot.Send(chatRecipient(chatID), text, &telebot.SendOptions{ParseMode: telebot.ModeDefault})
	return err
}
