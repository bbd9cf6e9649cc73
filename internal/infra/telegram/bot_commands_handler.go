// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"homework_status_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// StatusReporter is implemented by app.Poller.
type StatusReporter interface {
	Status() app.StatusSnapshot
}

// RegisterBotCommands registers /start, /help and /status. Only the configured chat gets answers.
func RegisterBotCommands(
	b *telebot.Bot,
	chatID string,
	reporter StatusReporter,
	baseLogger *logrus.Entry, // For contextual logging
) {
	cmdLogger := baseLogger.WithField("handler_group", "commands")

	allowed := func(c telebot.Context) bool {
		return isConfiguredChat(c.Chat(), chatID)
	}

	b.Handle("/start", func(c telebot.Context) error {
		logCtx := cmdLogger.WithField("command", "/start").WithField("chat_id", chatIDOf(c))
		if !allowed(c) {
			logCtx.Warn("Command from unknown chat ignored")
			return nil
		}
		logCtx.Info("Processing /start command")
		return c.Send("Привет! Я слежу за статусом проверки домашних работ и пришлю сообщение, когда он изменится. /help - список команд.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		logCtx := cmdLogger.WithField("command", "/help").WithField("chat_id", chatIDOf(c))
		if !allowed(c) {
			logCtx.Warn("Command from unknown chat ignored")
			return nil
		}
		logCtx.Info("Processing /help command")
		var helpText strings.Builder
		helpText.WriteString("Доступные команды:\n\n")
		helpText.WriteString("/status - время последней проверки, последнее сообщение и ошибка, если была.\n")
		helpText.WriteString("/help - показать это сообщение.")
		return c.Send(helpText.String())
	})

	b.Handle("/status", func(c telebot.Context) error {
		logCtx := cmdLogger.WithField("command", "/status").WithField("chat_id", chatIDOf(c))
		if !allowed(c) {
			logCtx.Warn("Command from unknown chat ignored")
			return nil
		}
		logCtx.Info("Processing /status command")
		return c.Send(FormatStatus(reporter.Status()))
	})
}

// FormatStatus renders a status snapshot for the chat.
func FormatStatus(st app.StatusSnapshot) string {
	if st.Cycles == 0 {
		return "Проверок ещё не было."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Проверок выполнено: %d\n", st.Cycles))
	sb.WriteString(fmt.Sprintf("Последняя проверка: %s\n", st.LastCycleAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Окно запроса с: %s (%s)\n",
		time.Unix(st.FromDate, 0).Format("2006-01-02 15:04:05"), st.WindowPolicy))
	if st.LastError != "" {
		sb.WriteString(fmt.Sprintf("Ошибка (%s): %s\n", st.LastErrorKind, st.LastError))
	} else {
		sb.WriteString("Ошибок нет\n")
	}
	if st.LastMessage != "" {
		sb.WriteString(fmt.Sprintf("Последнее сообщение (%s): %s", st.LastSentAt.Format("2006-01-02 15:04:05"), st.LastMessage))
	} else {
		sb.WriteString("Сообщений ещё не отправлялось")
	}
	return sb.String()
}

func isConfiguredChat(chat *telebot.Chat, chatID string) bool {
	if chat == nil {
		return false
	}
	if strconv.FormatInt(chat.ID, 10) == chatID {
		return true
	}
	return chat.Username != "" && strings.EqualFold("@"+chat.Username, chatID)
}

func chatIDOf(c telebot.Context) int64 {
	if c.Chat() == nil {
		return 0
	}
	return c.Chat().ID
}
