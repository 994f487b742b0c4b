package notify

import (
	"fmt"
	"log/slog"

	"github.com/cadenzadl/cadenza/src/features/config"
	"github.com/cadenzadl/cadenza/src/features/downloading"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSink forwards item outcomes to Telegram chats. It implements
// downloading.ProgressSink; per-track progress is deliberately not
// forwarded to keep chats readable.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	config *config.Manager
}

// NewTelegramSink creates a sink for the configured bot token.
func NewTelegramSink(cfg *config.Manager) (*TelegramSink, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram notifications are disabled in configuration")
	}
	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram notifications initialized", "username", bot.Self.UserName)
	return &TelegramSink{bot: bot, config: cfg}, nil
}

// Notify implements downloading.ProgressSink. Send failures are logged and
// swallowed so a flaky bot never stalls the pipeline.
func (t *TelegramSink) Notify(event downloading.Event) {
	var text string
	switch event.Type {
	case downloading.EventAlbumComplete:
		text = fmt.Sprintf("✅ Finished: %s - %s", event.Artist, event.Album)
	case downloading.EventRunError:
		text = fmt.Sprintf("❌ Failed: %s - %s\n%s", event.Artist, event.Album, event.Error)
	case downloading.EventRunCancelled:
		text = "🛑 Download run cancelled"
	case downloading.EventAllComplete:
		text = "🏁 All downloads complete"
	default:
		return
	}

	for _, chatID := range t.config.Get().Telegram.ChatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.bot.Send(msg); err != nil {
			slog.Error("Failed to send Telegram notification", "chat_id", chatID, "error", err)
		}
	}
}
