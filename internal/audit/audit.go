package audit

import (
	"context"
	"time"

	"vanilla-reaper/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
)

// Logger records moderation events to the store and to the process log.
// An optional notifier lets the bot mirror entries into a chat.
type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.AuditLog)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, chatID, actorID, targetID, event, details string) {
	entry := storage.AuditLog{
		ChatID:    chatID,
		ActorID:   actorID,
		TargetID:  targetID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if l.store != nil {
		_ = l.store.AddAuditLog(ctx, entry)
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("audit",
		zap.String("level", level),
		zap.String("chat_id", chatID),
		zap.String("actor_id", actorID),
		zap.String("target_id", targetID),
		zap.String("event", event),
		zap.String("details", details))
}
