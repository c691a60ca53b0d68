package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/pkg/config"
)

// messageSender is the part of *bot.Bot the notifier uses
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier delivers alerts to one Telegram chat
type TelegramNotifier struct {
	sender messageSender
	chatID int64
}

// NewTelegramNotifier connects a bot from config. Returns nil, nil when
// Telegram delivery is disabled.
func NewTelegramNotifier(cfg config.TelegramConfig) (*TelegramNotifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	b, err := bot.New(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{sender: b, chatID: cfg.ChatID}, nil
}

// Notify sends the alert as a Markdown message. A nil notifier drops it.
func (n *TelegramNotifier) Notify(ctx context.Context, a contracts.Alert) error {
	if n == nil {
		return nil
	}
	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      formatTelegram(a),
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func formatTelegram(a contracts.Alert) string {
	var b strings.Builder
	switch a.Level {
	case contracts.LevelCritical:
		b.WriteString("🚨 *긴급*")
	case contracts.LevelWarning:
		b.WriteString("⚠️ *주의*")
	default:
		b.WriteString("ℹ️ *알림*")
	}
	fmt.Fprintf(&b, " `%s`\n%s\n_%s_", a.Kind, a.Message, a.FiredAt.Format("2006-01-02 15:04"))
	return b.String()
}
