package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vanilla-reaper/internal/activity"
	"vanilla-reaper/internal/audit"
	"vanilla-reaper/internal/bot"
	"vanilla-reaper/internal/chance"
	"vanilla-reaper/internal/config"
	"vanilla-reaper/internal/moderation"
	"vanilla-reaper/internal/state"
	"vanilla-reaper/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	db, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	if cfg.RetentionDays > 0 {
		if err := db.CleanupAuditLogs(context.Background(), cfg.RetentionDays); err != nil {
			logger.Warn("audit retention cleanup failed", zap.Error(err))
		}
	}

	auditLogger := audit.NewLogger(db, logger)
	chatState := state.NewStore()
	tracker := activity.NewTracker(chatState)

	botSvc, err := bot.New(cfg, logger, chatState, tracker, auditLogger)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	mod := moderation.NewEngine(cfg.OwnerID, chatState, botSvc.Platform(), auditLogger, logger)
	roulette := chance.New(mod)
	botSvc.AttachEngines(mod, roulette)

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.String("owner", cfg.OwnerID))

	var server *http.Server
	if cfg.Health.Enabled {
		server = &http.Server{Addr: cfg.Health.Addr}
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
}
