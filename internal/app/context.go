package app

import (
	"context"

	"github.com/mramrohaleem/telegram-bot/internal/domain"
	"github.com/mramrohaleem/telegram-bot/internal/infra/config"
	"github.com/mramrohaleem/telegram-bot/internal/infra/logger"
)

// Retriever is the queue's contract with the retrieval engine. Retrieve is
// synchronous; onProgress may be invoked from a different goroutine than the
// caller's and must tolerate that.
type Retriever interface {
	Retrieve(ctx context.Context, url, destDir, formatID string, onProgress func(domain.ProgressEvent)) (*domain.RetrievalResult, error)
}

// Notifier delivers text and files to a chat. EditMessage failures are
// expected (the message may be gone) and callers ignore them.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	SendFile(ctx context.Context, chatID int64, path, displayName string, kind domain.FileKind) error
}

// Preferences is the read side of the per-user settings store the delivery
// step consults.
type Preferences interface {
	VideoAsDocument(userID int64) bool
}

// Context holds the core environment and shared resources for the bot.
// It acts as the "Single Source of Truth" for the application state.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	// High-level interfaces for services to use
	Retriever Retriever
	Notifier  Notifier
	Prefs     Preferences
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
