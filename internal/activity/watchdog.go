package activity

import (
	"sync"
	"time"

	"vanilla-reaper/internal/state"

	"go.uber.org/zap"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Watchdog periodically nudges chats that have been silent longer than the
// threshold. Nudging resets the chat's idle clock so a dead chat is not
// spammed every sweep.
type Watchdog struct {
	store     *state.Store
	threshold time.Duration
	period    time.Duration
	notify    func(chatID string)
	logger    *zap.Logger
	clock     Clock

	once sync.Once
	stop chan struct{}
}

func NewWatchdog(store *state.Store, threshold, period time.Duration, notify func(chatID string), logger *zap.Logger) *Watchdog {
	return &Watchdog{
		store:     store,
		threshold: threshold,
		period:    period,
		notify:    notify,
		logger:    logger,
		clock:     realClock{},
		stop:      make(chan struct{}),
	}
}

func (w *Watchdog) WithClock(clock Clock) {
	w.clock = clock
}

func (w *Watchdog) Start() {
	go func() {
		ticker := time.NewTicker(w.period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.sweep(w.clock.Now())
			case <-w.stop:
				return
			}
		}
	}()
}

func (w *Watchdog) Stop() {
	w.once.Do(func() { close(w.stop) })
}

func (w *Watchdog) sweep(now time.Time) {
	for _, chatID := range w.store.IdleChats(w.threshold, now) {
		w.logger.Debug("silent chat nudged", zap.String("chat_id", chatID))
		w.notify(chatID)
		w.store.TouchActivity(chatID)
	}
}
