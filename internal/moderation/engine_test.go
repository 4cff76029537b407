package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vanilla-reaper/internal/audit"
	"vanilla-reaper/internal/state"
	"vanilla-reaper/internal/storage"

	"go.uber.org/zap"
)

type fakeTimer struct {
	stopped  bool
	deadline time.Time
	fn       func()
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{deadline: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the clock and fires every unstopped timer whose deadline
// has passed.
func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	var due, pending []*fakeTimer
	for _, timer := range f.timers {
		if timer.stopped {
			continue
		}
		if !timer.deadline.After(f.now) {
			due = append(due, timer)
		} else {
			pending = append(pending, timer)
		}
	}
	f.timers = pending
	f.mu.Unlock()
	for _, timer := range due {
		timer.fn()
	}
}

type platformCall struct {
	op     string
	chatID string
	userID string
}

type fakePlatform struct {
	mu          sync.Mutex
	calls       []platformCall
	canRestrict bool
	restrictErr error
	banErr      error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{canRestrict: true}
}

func (p *fakePlatform) record(op, chatID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, platformCall{op: op, chatID: chatID, userID: userID})
}

func (p *fakePlatform) Restrict(ctx context.Context, chatID, userID string, until time.Time) error {
	p.record("restrict", chatID, userID)
	return p.restrictErr
}

func (p *fakePlatform) Unrestrict(ctx context.Context, chatID, userID string) error {
	p.record("unrestrict", chatID, userID)
	return nil
}

func (p *fakePlatform) Ban(ctx context.Context, chatID, userID string) error {
	p.record("ban", chatID, userID)
	return p.banErr
}

func (p *fakePlatform) Unban(ctx context.Context, chatID, userID string) error {
	p.record("unban", chatID, userID)
	return nil
}

func (p *fakePlatform) CanRestrict(chatID string) bool { return p.canRestrict }

func (p *fakePlatform) count(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, call := range p.calls {
		if call.op == op {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T) (*Engine, *fakePlatform, *fakeClock, *state.Store) {
	t.Helper()
	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := state.NewStore()
	platform := newFakePlatform()
	engine := NewEngine("owner", store, platform, audit.NewLogger(db, zap.NewNop()), zap.NewNop())
	clock := &fakeClock{now: time.Unix(1000, 0)}
	engine.WithClock(clock)
	return engine, platform, clock, store
}

func TestWarnEscalatesToBan(t *testing.T) {
	engine, platform, _, store := newTestEngine(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		result, err := engine.Warn(ctx, "owner", "u1", "c1")
		if err != nil {
			t.Fatalf("warn %d: %v", i, err)
		}
		if result.Count != i || result.Banned {
			t.Fatalf("warn %d: got %+v", i, result)
		}
	}
	if platform.count("ban") != 0 {
		t.Fatalf("ban applied before third warning")
	}

	result, err := engine.Warn(ctx, "owner", "u1", "c1")
	if err != nil {
		t.Fatalf("warn 3: %v", err)
	}
	if result.Count != 3 || !result.Banned {
		t.Fatalf("warn 3: got %+v", result)
	}
	if platform.count("ban") != 1 {
		t.Fatalf("expected one platform ban, got %d", platform.count("ban"))
	}
	if !store.IsBanned("c1", "u1") {
		t.Fatalf("expected ban recorded")
	}
}

func TestWarnBanFailureStillCounts(t *testing.T) {
	engine, platform, _, store := newTestEngine(t)
	ctx := context.Background()
	platform.banErr = errors.New("boom")

	var result WarnResult
	var err error
	for i := 0; i < 3; i++ {
		result, err = engine.Warn(ctx, "owner", "u1", "c1")
		if err != nil {
			t.Fatalf("warn: %v", err)
		}
	}
	if result.Count != 3 || result.Banned {
		t.Fatalf("got %+v, want count 3 not banned", result)
	}
	if store.IsBanned("c1", "u1") {
		t.Fatalf("ban recorded despite platform failure")
	}
}

func TestOwnerIsUntouchable(t *testing.T) {
	engine, platform, _, store := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Warn(ctx, "owner", "owner", "c1"); !errors.Is(err, ErrTargetOwner) {
		t.Fatalf("warn owner: %v", err)
	}
	if _, err := engine.Mute(ctx, "owner", "owner", "c1", time.Minute); !errors.Is(err, ErrTargetOwner) {
		t.Fatalf("mute owner: %v", err)
	}
	if err := engine.Kick(ctx, "owner", "owner", "c1"); !errors.Is(err, ErrTargetOwner) {
		t.Fatalf("kick owner: %v", err)
	}
	if err := engine.Ban(ctx, "owner", "owner", "c1"); !errors.Is(err, ErrTargetOwner) {
		t.Fatalf("ban owner: %v", err)
	}
	if len(platform.calls) != 0 {
		t.Fatalf("platform touched: %+v", platform.calls)
	}
	if store.WarningCount("c1", "owner") != 0 {
		t.Fatalf("warning recorded against owner")
	}
}

func TestNonAdminRejected(t *testing.T) {
	engine, platform, _, store := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Warn(ctx, "rando", "u1", "c1"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("warn: %v", err)
	}
	if _, err := engine.Mute(ctx, "rando", "u1", "c1", time.Minute); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("mute: %v", err)
	}
	if err := engine.Ban(ctx, "rando", "u1", "c1"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("ban: %v", err)
	}
	if _, err := engine.PickVictim(ctx, "rando", "c1"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("victim: %v", err)
	}
	if len(platform.calls) != 0 {
		t.Fatalf("platform touched: %+v", platform.calls)
	}
	if store.WarningCount("c1", "u1") != 0 {
		t.Fatalf("state mutated by rejected command")
	}
}

func TestGrantAdminOwnerOnly(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.GrantAdmin(ctx, "rando", "u1", "c1"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("grant by rando: %v", err)
	}
	if err := engine.GrantAdmin(ctx, "owner", "u1", "c1"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !engine.IsAdmin("c1", "u1") {
		t.Fatalf("expected admin")
	}

	// admins can moderate but not mint admins
	if err := engine.GrantAdmin(ctx, "u1", "u2", "c1"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("grant by admin: %v", err)
	}
	if _, err := engine.Warn(ctx, "u1", "u2", "c1"); err != nil {
		t.Fatalf("warn by admin: %v", err)
	}

	if err := engine.RevokeAdmin(ctx, "owner", "u1", "c1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if engine.IsAdmin("c1", "u1") {
		t.Fatalf("admin not revoked")
	}
}

func TestTransferOwnership(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.TransferOwnership(ctx, "rando", "u1"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("transfer by rando: %v", err)
	}
	if err := engine.TransferOwnership(ctx, "owner", "u1"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if engine.Owner() != "u1" {
		t.Fatalf("owner not transferred")
	}
	if err := engine.TransferOwnership(ctx, "owner", "u2"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("old owner still accepted")
	}
}

func TestMuteExpiresOnce(t *testing.T) {
	engine, platform, clock, store := newTestEngine(t)
	ctx := context.Background()

	until, err := engine.Mute(ctx, "owner", "u1", "c1", 60*time.Second)
	if err != nil {
		t.Fatalf("mute: %v", err)
	}
	if want := clock.Now().Add(60 * time.Second); !until.Equal(want) {
		t.Fatalf("until = %v, want %v", until, want)
	}
	if platform.count("restrict") != 1 {
		t.Fatalf("restrict not called")
	}

	clock.Advance(61 * time.Second)
	if platform.count("unrestrict") != 1 {
		t.Fatalf("expected one unrestrict, got %d", platform.count("unrestrict"))
	}
	if _, ok := store.Mute("c1", "u1"); ok {
		t.Fatalf("mute entry survived expiry")
	}

	clock.Advance(time.Hour)
	if platform.count("unrestrict") != 1 {
		t.Fatalf("unrestrict fired again")
	}
}

func TestRemuteReplacesExpiry(t *testing.T) {
	engine, platform, clock, store := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Mute(ctx, "owner", "u1", "c1", 5*time.Second); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if _, err := engine.Mute(ctx, "owner", "u1", "c1", 50*time.Second); err != nil {
		t.Fatalf("remute: %v", err)
	}

	// past the first deadline, inside the second
	clock.Advance(10 * time.Second)
	if platform.count("unrestrict") != 0 {
		t.Fatalf("stale timer lifted the longer mute")
	}
	if _, ok := store.Mute("c1", "u1"); !ok {
		t.Fatalf("mute entry lost")
	}

	clock.Advance(45 * time.Second)
	if platform.count("unrestrict") != 1 {
		t.Fatalf("expected one unrestrict, got %d", platform.count("unrestrict"))
	}
}

func TestUnmuteCancelsTimer(t *testing.T) {
	engine, platform, clock, store := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Mute(ctx, "owner", "u1", "c1", time.Minute); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if err := engine.Unmute(ctx, "owner", "u1", "c1"); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if platform.count("unrestrict") != 1 {
		t.Fatalf("unrestrict not called")
	}
	if _, ok := store.Mute("c1", "u1"); ok {
		t.Fatalf("mute entry survived unmute")
	}

	clock.Advance(2 * time.Minute)
	if platform.count("unrestrict") != 1 {
		t.Fatalf("cancelled timer still fired")
	}
}

func TestUnmuteWithoutEntry(t *testing.T) {
	engine, platform, _, _ := newTestEngine(t)

	// unmute is command-driven; the platform side is lifted even when no
	// mute is tracked locally
	if err := engine.Unmute(context.Background(), "owner", "u1", "c1"); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if platform.count("unrestrict") != 1 {
		t.Fatalf("unrestrict not called")
	}
}

func TestMuteRejectedWithoutRights(t *testing.T) {
	engine, platform, _, store := newTestEngine(t)
	platform.canRestrict = false

	if _, err := engine.Mute(context.Background(), "owner", "u1", "c1", time.Minute); !errors.Is(err, ErrPlatformDenied) {
		t.Fatalf("mute: %v", err)
	}
	if platform.count("restrict") != 0 {
		t.Fatalf("restrict attempted without rights")
	}
	if _, ok := store.Mute("c1", "u1"); ok {
		t.Fatalf("mute recorded without platform apply")
	}
}

func TestPlatformDenialsAreAudited(t *testing.T) {
	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	platform := newFakePlatform()
	platform.canRestrict = false
	engine := NewEngine("owner", state.NewStore(), platform, audit.NewLogger(db, zap.NewNop()), zap.NewNop())
	engine.WithClock(&fakeClock{now: time.Unix(1000, 0)})
	ctx := context.Background()

	if _, err := engine.Mute(ctx, "owner", "u1", "c1", time.Minute); !errors.Is(err, ErrPlatformDenied) {
		t.Fatalf("mute: %v", err)
	}
	if err := engine.Kick(ctx, "owner", "u1", "c1"); !errors.Is(err, ErrPlatformDenied) {
		t.Fatalf("kick: %v", err)
	}
	if err := engine.Ban(ctx, "owner", "u1", "c1"); !errors.Is(err, ErrPlatformDenied) {
		t.Fatalf("ban: %v", err)
	}
	if err := engine.Unban(ctx, "owner", "u1", "c1"); !errors.Is(err, ErrPlatformDenied) {
		t.Fatalf("unban: %v", err)
	}

	logs, err := db.ListAuditLogs(ctx, "c1", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	seen := make(map[string]bool, len(logs))
	for _, entry := range logs {
		seen[entry.Event] = true
	}
	for _, event := range []string{"mute_denied", "kick_denied", "ban_denied", "unban_denied"} {
		if !seen[event] {
			t.Fatalf("denial %q not audited, got %v", event, seen)
		}
	}
}

func TestMuteBadDuration(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	if _, err := engine.Mute(context.Background(), "owner", "u1", "c1", 0); !errors.Is(err, ErrBadDuration) {
		t.Fatalf("mute: %v", err)
	}
}

func TestMuteRestrictFailureKeepsState(t *testing.T) {
	engine, platform, _, store := newTestEngine(t)
	platform.restrictErr = errors.New("boom")

	if _, err := engine.Mute(context.Background(), "owner", "u1", "c1", time.Minute); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := store.Mute("c1", "u1"); ok {
		t.Fatalf("mute recorded despite platform failure")
	}
}

func TestKickBansThenUnbans(t *testing.T) {
	engine, platform, _, store := newTestEngine(t)

	if err := engine.Kick(context.Background(), "owner", "u1", "c1"); err != nil {
		t.Fatalf("kick: %v", err)
	}
	if platform.count("ban") != 1 || platform.count("unban") != 1 {
		t.Fatalf("calls: %+v", platform.calls)
	}
	if store.IsBanned("c1", "u1") {
		t.Fatalf("kick left a persistent ban")
	}
}

func TestBanAndUnban(t *testing.T) {
	engine, _, _, store := newTestEngine(t)
	ctx := context.Background()

	if err := engine.Ban(ctx, "owner", "u1", "c1"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if !store.IsBanned("c1", "u1") {
		t.Fatalf("ban not recorded")
	}
	if err := engine.Unban(ctx, "owner", "u1", "c1"); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if store.IsBanned("c1", "u1") {
		t.Fatalf("ban not cleared")
	}
}

func TestPickVictim(t *testing.T) {
	engine, _, _, store := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.PickVictim(ctx, "owner", "c1"); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("empty pool: %v", err)
	}
	if _, ok := store.Victim("c1"); ok {
		t.Fatalf("victim set by rejected pick")
	}

	store.RecordActivity("c1", "u1")
	store.RecordActivity("c1", "u2")
	engine.WithRand(func(n int) int { return 0 })

	victimID, err := engine.PickVictim(ctx, "owner", "c1")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if victimID != "u1" && victimID != "u2" {
		t.Fatalf("victim %q not from pool", victimID)
	}
	if !engine.Profile("c1", victimID).IsVictim {
		t.Fatalf("victim not recorded")
	}
}

func TestProfileReflectsMute(t *testing.T) {
	engine, _, clock, _ := newTestEngine(t)

	if _, err := engine.Mute(context.Background(), "owner", "u1", "c1", time.Minute); err != nil {
		t.Fatalf("mute: %v", err)
	}
	profile := engine.Profile("c1", "u1")
	if !profile.Muted || profile.MuteRemaining != time.Minute {
		t.Fatalf("profile: %+v", profile)
	}

	clock.Advance(2 * time.Minute)
	profile = engine.Profile("c1", "u1")
	if profile.Muted {
		t.Fatalf("profile still muted after expiry: %+v", profile)
	}
}
