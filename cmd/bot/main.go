package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"homework_status_bot/internal/app"
	"homework_status_bot/internal/domain/homework"
	domainTelegram "homework_status_bot/internal/domain/telegram"
	"homework_status_bot/internal/infra/config"
	idb "homework_status_bot/internal/infra/database"
	"homework_status_bot/internal/infra/logger"
	"homework_status_bot/internal/infra/practicum"
	"homework_status_bot/internal/infra/scheduler"
	"homework_status_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Homework Status Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	closeLog, err := logger.Init(cfg)
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not initialize logger: %v", err)
	}
	defer func() { _ = closeLog() }()

	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"retry":         cfg.RetryInterval.String(),
		"window_policy": cfg.WindowPolicy,
		"state_driver":  cfg.StateDriver,
		"bot_client":    cfg.BotClient,
	}).Info("Configuration loaded")

	if missing := cfg.MissingTokens(); len(missing) > 0 {
		mainLogger.WithFields(logrus.Fields{
			"severity": "critical",
			"missing":  missing,
		}).Fatal("Required credentials are missing, exiting")
	}

	ctx := context.Background()

	// Initialize State Repository
	stateRepo, db, err := openStateRepository(ctx, cfg)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not initialize state repository")
	}
	if db != nil {
		defer db.Close()
	}
	mainLogger.WithField("driver", cfg.StateDriver).Info("State repository initialized.")

	// Initialize Homework API Client
	practicumClient, err := practicum.NewClient(cfg.PracticumEndpoint, cfg.PracticumToken, cfg.HTTPTimeout, logger.Component("practicum"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create homework API client")
	}
	defer practicumClient.Close()

	// Initialize Telegram Client
	bot, telegramClient, err := newTelegramClient(cfg)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram client")
	}
	mainLogger.WithField("client", cfg.BotClient).Info("Telegram client initialized.")

	// Initialize Poller
	poller := app.NewPoller(cfg, practicumClient, telegramClient, stateRepo, logger.Component("poller"))
	if err := poller.Init(ctx); err != nil {
		mainLogger.WithError(err).Fatal("Could not initialize poller")
	}

	if cfg.BotCommandsEnabled {
		if bot != nil {
			telegram.RegisterBotCommands(bot, cfg.TelegramChatID, poller, logger.Component("telegram"))
			go bot.Start()
			defer bot.Stop()
			mainLogger.Info("Bot command handlers registered, long polling started.")
		} else {
			mainLogger.WithField("client", cfg.BotClient).Warn("Bot commands need the telebot client, ignoring BOT_COMMANDS_ENABLED")
		}
	}

	// Initialize PollScheduler
	pollScheduler := scheduler.NewPollScheduler(poller, cfg.RetryInterval, logger.Component("scheduler"))
	pollScheduler.Start(ctx)

	mainLogger.Info("Application setup complete. Polling homework statuses...")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit // Block until a signal is received

	mainLogger.WithField("signal", sig.String()).Info("Shutting down application...")
	pollScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
}

// openStateRepository returns the repository for cfg.StateDriver. The returned *sql.DB is nil for the memory driver.
func openStateRepository(ctx context.Context, cfg *config.AppConfig) (homework.Repository, *sql.DB, error) {
	key := cfg.TelegramChatID

	switch cfg.StateDriver {
	case config.StateMemory:
		return idb.NewMemoryStateRepository(), nil, nil
	case config.StateSQLite:
		db, err := idb.NewSQLiteConnection(cfg.StateDSN)
		if err != nil {
			return nil, nil, err
		}
		repo, err := idb.NewSQLiteStateRepository(ctx, db, key)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, db, nil
	case config.StatePostgres:
		db, err := idb.NewPostgresConnection(cfg.StateDSN)
		if err != nil {
			return nil, nil, err
		}
		repo, err := idb.NewPostgresStateRepository(ctx, db, key)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown state driver %q", cfg.StateDriver)
	}
}

// newTelegramClient returns the send-side client for cfg.BotClient.
// The *telebot.Bot is non-nil only for the telebot client and is used for commands.
func newTelegramClient(cfg *config.AppConfig) (*telebot.Bot, domainTelegram.Client, error) {
	switch cfg.BotClient {
	case config.BotClientBotAPI:
		adapter, err := telegram.NewBotAPIAdapter(cfg.TelegramToken, "", nil)
		if err != nil {
			return nil, nil, err
		}
		logger.Component("telegram").WithField("username", adapter.UserName()).Info("Authorized on Bot API")
		return nil, adapter, nil
	default:
		telebotLogger := logger.Component("telebot")
		bot, err := telegram.NewTelebot(cfg.TelegramToken, "", func(err error, c telebot.Context) { // Global error handler
			entry := telebotLogger.WithError(err)
			if c != nil && c.Chat() != nil {
				entry = entry.WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telegram bot error")
		})
		if err != nil {
			return nil, nil, err
		}
		return bot, telegram.NewTelebotAdapter(bot), nil
	}
}
