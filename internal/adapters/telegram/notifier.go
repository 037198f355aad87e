package telegram

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"hyperdash/internal/ports"
)

// Notifier implements ports.Notifier by sending messages to a fixed
// Telegram chat. Send-only: it never polls for updates.
type Notifier struct {
	bot    *tele.Bot
	chatID int64
	logger ports.Logger
}

// Config holds configuration for the Telegram notifier.
type Config struct {
	Token  string // Bot API token from @BotFather
	ChatID int64  // Target chat ID
	Logger ports.Logger
}

// New creates a Telegram notifier. The token is verified against the Bot
// API during construction.
func New(cfg Config) (*Notifier, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Telegram notifier")
	}
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram token and chat ID are required")
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	cfg.Logger.Info(context.Background(), "Telegram notifier initialized", map[string]interface{}{"chatID": cfg.ChatID})
	return &Notifier{bot: bot, chatID: cfg.ChatID, logger: cfg.Logger}, nil
}

// Notify sends a message to the configured chat.
func (n *Notifier) Notify(ctx context.Context, msg string) error {
	if _, err := n.bot.Send(tele.ChatID(n.chatID), msg); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrNotifyFailed, err)
	}
	n.logger.Debug(ctx, "Notification sent", map[string]interface{}{"chatID": n.chatID})
	return nil
}
