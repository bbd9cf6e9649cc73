package telegram

import "context"

// Client defines an interface for sending messages via a Telegram bot.
type Client interface {
	// SendMessage delivers text to a chat. chatID is a numeric id or an @channel username.
	SendMessage(ctx context.Context, chatID string, text string) error
}
