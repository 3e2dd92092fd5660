package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mramrohaleem/telegram-bot/internal/domain"
	"github.com/mramrohaleem/telegram-bot/internal/infra/logger"
)

// TelegramNotifier delivers texts and files through the Telegram Bot API.
// The Bot API client carries no context; the ctx parameters exist for the
// notifier contract and future transports.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
	log *logger.Logger
}

func NewTelegramNotifier(token string, log *logger.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}
	log.Info("authorized on telegram account %s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, log: log}, nil
}

func (n *TelegramNotifier) SendMessage(_ context.Context, chatID int64, text string) (int, error) {
	sent, err := n.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("send message failed: %w", err)
	}
	return sent.MessageID, nil
}

func (n *TelegramNotifier) EditMessage(_ context.Context, chatID int64, messageID int, text string) error {
	_, err := n.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	if err != nil {
		// Expected when the message was deleted or the text is unchanged.
		n.log.Debug("edit of message %d in chat %d failed: %v", messageID, chatID, err)
		return fmt.Errorf("edit message failed: %w", err)
	}
	return nil
}

// SendFile uploads the file under a display name, choosing the Telegram
// media type from kind.
func (n *TelegramNotifier) SendFile(_ context.Context, chatID int64, path, displayName string, kind domain.FileKind) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	upload := tgbotapi.FileReader{
		Name:   displayName + filepath.Ext(path),
		Reader: f,
	}

	var msg tgbotapi.Chattable
	switch kind {
	case domain.FileAudio:
		msg = tgbotapi.NewAudio(chatID, upload)
	case domain.FileDocument:
		msg = tgbotapi.NewDocument(chatID, upload)
	default:
		msg = tgbotapi.NewVideo(chatID, upload)
	}

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("file upload failed: %w", err)
	}
	return nil
}
