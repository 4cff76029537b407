package moderation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"vanilla-reaper/internal/audit"
	"vanilla-reaper/internal/state"

	"go.uber.org/zap"
)

// Warnings before the automatic ban. Fixed policy, no reset.
const warnThreshold = 3

var (
	ErrNotOwner       = errors.New("actor is not the owner")
	ErrNotAdmin       = errors.New("actor is not an admin")
	ErrTargetOwner    = errors.New("target is the owner")
	ErrPlatformDenied = errors.New("bot lacks restriction rights")
	ErrEmptyPool      = errors.New("no recently active users")
	ErrBadDuration    = errors.New("duration must be positive")
)

// Platform applies chat-level sanctions. Implementations map their
// permission failures to ErrPlatformDenied; anything else is transient.
type Platform interface {
	Restrict(ctx context.Context, chatID, userID string, until time.Time) error
	Unrestrict(ctx context.Context, chatID, userID string) error
	Ban(ctx context.Context, chatID, userID string) error
	Unban(ctx context.Context, chatID, userID string) error
	CanRestrict(chatID string) bool
}

type WarnResult struct {
	Count  int
	Banned bool
}

type Profile struct {
	WarningCount  int
	Muted         bool
	MuteRemaining time.Duration
	IsVictim      bool
}

// Engine applies moderation commands against the chat state store and the
// platform. One instance owns the process-wide owner id and all pending
// mute-expiry timers.
type Engine struct {
	store    *state.Store
	platform Platform
	audit    *audit.Logger
	logger   *zap.Logger
	clock    Clock
	intn     func(int) int

	ownerMu sync.RWMutex
	ownerID string

	timersMu sync.Mutex
	timers   map[string]Timer
}

func NewEngine(ownerID string, store *state.Store, platform Platform, auditLogger *audit.Logger, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		platform: platform,
		audit:    auditLogger,
		logger:   logger,
		clock:    realClock{},
		intn:     rand.Intn,
		ownerID:  ownerID,
		timers:   make(map[string]Timer),
	}
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

func (e *Engine) WithRand(intn func(int) int) {
	e.intn = intn
}

func (e *Engine) Owner() string {
	e.ownerMu.RLock()
	defer e.ownerMu.RUnlock()
	return e.ownerID
}

func (e *Engine) IsOwner(userID string) bool {
	return userID == e.Owner()
}

func (e *Engine) IsAdmin(chatID, userID string) bool {
	return e.IsOwner(userID) || e.store.IsAdmin(chatID, userID)
}

func (e *Engine) GrantAdmin(ctx context.Context, actorID, targetID, chatID string) error {
	if !e.IsOwner(actorID) {
		return ErrNotOwner
	}
	e.store.AddAdmin(chatID, targetID)
	e.audit.Log(ctx, audit.LevelInfo, chatID, actorID, targetID, "admin_granted", "")
	return nil
}

func (e *Engine) RevokeAdmin(ctx context.Context, actorID, targetID, chatID string) error {
	if !e.IsOwner(actorID) {
		return ErrNotOwner
	}
	e.store.RemoveAdmin(chatID, targetID)
	e.audit.Log(ctx, audit.LevelInfo, chatID, actorID, targetID, "admin_revoked", "")
	return nil
}

func (e *Engine) TransferOwnership(ctx context.Context, actorID, newOwnerID string) error {
	e.ownerMu.Lock()
	if actorID != e.ownerID {
		e.ownerMu.Unlock()
		return ErrNotOwner
	}
	e.ownerID = newOwnerID
	e.ownerMu.Unlock()
	e.audit.Log(ctx, audit.LevelWarn, "", actorID, newOwnerID, "owner_transferred", "")
	return nil
}

// Warn increments the target's warning count. The third warning escalates
// to a ban; the counter is never reset, and the escalation does not fail
// the warn itself even when the platform ban cannot be applied.
func (e *Engine) Warn(ctx context.Context, actorID, targetID, chatID string) (WarnResult, error) {
	if !e.IsAdmin(chatID, actorID) {
		return WarnResult{}, ErrNotAdmin
	}
	if e.IsOwner(targetID) {
		return WarnResult{}, ErrTargetOwner
	}

	count := e.store.IncrementWarning(chatID, targetID)
	result := WarnResult{Count: count}
	e.audit.Log(ctx, audit.LevelWarn, chatID, actorID, targetID, "warned", fmt.Sprintf("count=%d", count))

	if count >= warnThreshold {
		if !e.platform.CanRestrict(chatID) {
			e.audit.Log(ctx, audit.LevelWarn, chatID, actorID, targetID, "warn_ban_skipped", "missing restriction rights")
			return result, nil
		}
		if err := e.platform.Ban(ctx, chatID, targetID); err != nil {
			e.logger.Warn("warn escalation ban failed",
				zap.String("chat_id", chatID), zap.String("target_id", targetID), zap.Error(err))
			e.audit.Log(ctx, audit.LevelWarn, chatID, actorID, targetID, "warn_ban_failed", err.Error())
			return result, nil
		}
		e.store.AddBan(chatID, targetID)
		result.Banned = true
		e.audit.Log(ctx, audit.LevelWarn, chatID, actorID, targetID, "warn_ban", fmt.Sprintf("count=%d", count))
	}
	return result, nil
}

func (e *Engine) Mute(ctx context.Context, actorID, targetID, chatID string, duration time.Duration) (time.Time, error) {
	if !e.IsAdmin(chatID, actorID) {
		return time.Time{}, ErrNotAdmin
	}
	if e.IsOwner(targetID) {
		return time.Time{}, ErrTargetOwner
	}
	until, err := e.SystemMute(ctx, targetID, chatID, duration)
	if err != nil {
		return time.Time{}, err
	}
	e.audit.Log(ctx, audit.LevelWarn, chatID, actorID, targetID, "muted", fmt.Sprintf("seconds=%d", int(duration.Seconds())))
	return until, nil
}

// SystemMute restricts the target with no role gate. The timer expiry path
// and the roulette use it; platform rejection is still possible. State is
// recorded only after the platform accepted the restriction, and a pending
// expiry timer for the same (chat, user) pair is replaced.
func (e *Engine) SystemMute(ctx context.Context, targetID, chatID string, duration time.Duration) (time.Time, error) {
	if duration <= 0 {
		return time.Time{}, ErrBadDuration
	}
	if !e.platform.CanRestrict(chatID) {
		e.audit.Log(ctx, audit.LevelWarn, chatID, "", targetID, "mute_denied", "missing restriction rights")
		return time.Time{}, ErrPlatformDenied
	}

	until := e.clock.Now().Add(duration)
	if err := e.platform.Restrict(ctx, chatID, targetID, until); err != nil {
		if errors.Is(err, ErrPlatformDenied) {
			return time.Time{}, ErrPlatformDenied
		}
		return time.Time{}, fmt.Errorf("restrict: %w", err)
	}

	e.store.SetMute(chatID, targetID, until)
	e.armExpiry(chatID, targetID, duration)
	return until, nil
}

func (e *Engine) armExpiry(chatID, targetID string, duration time.Duration) {
	key := chatID + ":" + targetID
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if old := e.timers[key]; old != nil {
		old.Stop()
	}
	e.timers[key] = e.clock.AfterFunc(duration, func() {
		e.expireMute(chatID, targetID)
	})
}

// expireMute runs when a mute timer fires. The entry is removed only if
// its stored expiry is due; a timer that outlived a re-mute with a later
// expiry does nothing.
func (e *Engine) expireMute(chatID, targetID string) {
	if !e.store.ClearMuteIfExpired(chatID, targetID, e.clock.Now()) {
		return
	}
	key := chatID + ":" + targetID
	e.timersMu.Lock()
	delete(e.timers, key)
	e.timersMu.Unlock()

	ctx := context.Background()
	if err := e.platform.Unrestrict(ctx, chatID, targetID); err != nil {
		e.logger.Warn("mute expiry unrestrict failed",
			zap.String("chat_id", chatID), zap.String("target_id", targetID), zap.Error(err))
	}
	e.audit.Log(ctx, audit.LevelInfo, chatID, "", targetID, "mute_expired", "")
}

func (e *Engine) Unmute(ctx context.Context, actorID, targetID, chatID string) error {
	if !e.IsAdmin(chatID, actorID) {
		return ErrNotAdmin
	}
	if err := e.platform.Unrestrict(ctx, chatID, targetID); err != nil {
		if errors.Is(err, ErrPlatformDenied) {
			return ErrPlatformDenied
		}
		return fmt.Errorf("unrestrict: %w", err)
	}

	key := chatID + ":" + targetID
	e.timersMu.Lock()
	if timer := e.timers[key]; timer != nil {
		timer.Stop()
		delete(e.timers, key)
	}
	e.timersMu.Unlock()
	e.store.ClearMute(chatID, targetID)
	e.audit.Log(ctx, audit.LevelInfo, chatID, actorID, targetID, "unmuted", "")
	return nil
}

// Kick removes the target by banning and immediately unbanning, so no
// persistent ban remains.
func (e *Engine) Kick(ctx context.Context, actorID, targetID, chatID string) error {
	if !e.IsAdmin(chatID, actorID) {
		return ErrNotAdmin
	}
	if e.IsOwner(targetID) {
		return ErrTargetOwner
	}
	if !e.platform.CanRestrict(chatID) {
		e.audit.Log(ctx, audit.LevelWarn, chatID, actorID, targetID, "kick_denied", "missing restriction rights")
		return ErrPlatformDenied
	}
	if err := e.platform.Ban(ctx, chatID, targetID); err != nil {
		return e.platformErr("kick ban", err)
	}
	if err := e.platform.Unban(ctx, chatID, targetID); err != nil {
		return e.platformErr("kick unban", err)
	}
	e.audit.Log(ctx, audit.LevelWarn, chatID, actorID, targetID, "kicked", "")
	return nil
}

func (e *Engine) Ban(ctx context.Context, actorID, targetID, chatID string) error {
	if !e.IsAdmin(chatID, actorID) {
		return ErrNotAdmin
	}
	if e.IsOwner(targetID) {
		return ErrTargetOwner
	}
	if !e.platform.CanRestrict(chatID) {
		e.audit.Log(ctx, audit.LevelWarn, chatID, actorID, targetID, "ban_denied", "missing restriction rights")
		return ErrPlatformDenied
	}
	if err := e.platform.Ban(ctx, chatID, targetID); err != nil {
		return e.platformErr("ban", err)
	}
	e.store.AddBan(chatID, targetID)
	e.audit.Log(ctx, audit.LevelWarn, chatID, actorID, targetID, "banned", "")
	return nil
}

func (e *Engine) Unban(ctx context.Context, actorID, targetID, chatID string) error {
	if !e.IsAdmin(chatID, actorID) {
		return ErrNotAdmin
	}
	if !e.platform.CanRestrict(chatID) {
		e.audit.Log(ctx, audit.LevelWarn, chatID, actorID, targetID, "unban_denied", "missing restriction rights")
		return ErrPlatformDenied
	}
	if err := e.platform.Unban(ctx, chatID, targetID); err != nil {
		return e.platformErr("unban", err)
	}
	e.store.RemoveBan(chatID, targetID)
	e.audit.Log(ctx, audit.LevelInfo, chatID, actorID, targetID, "unbanned", "")
	return nil
}

// PickVictim selects a uniform random victim from the recently active pool.
func (e *Engine) PickVictim(ctx context.Context, actorID, chatID string) (string, error) {
	if !e.IsAdmin(chatID, actorID) {
		return "", ErrNotAdmin
	}
	pool := e.store.RecentlyActive(chatID)
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	victimID := pool[e.intn(len(pool))]
	e.store.SetVictim(chatID, victimID)
	e.audit.Log(ctx, audit.LevelInfo, chatID, actorID, victimID, "victim_selected", "")
	return victimID, nil
}

// MarkVictim sets the victim directly, with no role gate. The roulette's
// victim outcome uses it.
func (e *Engine) MarkVictim(ctx context.Context, targetID, chatID string) {
	e.store.SetVictim(chatID, targetID)
	e.audit.Log(ctx, audit.LevelInfo, chatID, "", targetID, "victim_selected", "roulette")
}

func (e *Engine) Admins(chatID string) []string {
	return e.store.Admins(chatID)
}

func (e *Engine) Profile(chatID, userID string) Profile {
	p := Profile{WarningCount: e.store.WarningCount(chatID, userID)}
	if until, ok := e.store.Mute(chatID, userID); ok {
		remaining := until.Sub(e.clock.Now())
		if remaining > 0 {
			p.Muted = true
			p.MuteRemaining = remaining
		}
	}
	if victimID, ok := e.store.Victim(chatID); ok && victimID == userID {
		p.IsVictim = true
	}
	return p
}

func (e *Engine) platformErr(op string, err error) error {
	if errors.Is(err, ErrPlatformDenied) {
		return ErrPlatformDenied
	}
	return fmt.Errorf("%s: %w", op, err)
}
