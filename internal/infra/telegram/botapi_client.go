package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPIAdapter implements the Client interface on top of go-telegram-bot-api.
type BotAPIAdapter struct {
	api *tgbotapi.BotAPI
}

// NewBotAPIAdapter authorizes the token against the Bot API (a getMe call).
// apiEndpoint is a format string with token and method placeholders; empty means the public API.
func NewBotAPIAdapter(token, apiEndpoint string, httpClient *http.Client) (*BotAPIAdapter, error) {
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("could not authorize telegram bot: %w", err)
	}
	return &BotAPIAdapter{api: api}, nil
}

// UserName returns the bot account name reported by getMe.
func (a *BotAPIAdapter) UserName() string {
	return a.api.Self.UserName
}

func (a *BotAPIAdapter) SendMessage(ctx context.Context, chatID string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else if strings.HasPrefix(chatID, "@") {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	} else {
		return fmt.Errorf("invalid chat id %q: want a number or @channel", chatID)
	}

	_, err := a.api.Send(msg)
	return err
}
