package state

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Chat holds the volatile moderation state for one chat. All fields are
// guarded by mu; callers never see the struct directly.
type Chat struct {
	mu           sync.Mutex
	admins       map[string]struct{}
	warns        map[string]int
	mutes        map[string]time.Time
	banned       map[string]struct{}
	active       map[string]struct{}
	victim       string
	lastActivity time.Time
}

// Store maps chat ids to lazily-created chat state. Operations on the same
// chat are serialized by the chat's own mutex; different chats do not
// contend.
type Store struct {
	mu    sync.RWMutex
	clock Clock
	chats map[string]*Chat
}

func NewStore() *Store {
	return &Store{
		clock: realClock{},
		chats: make(map[string]*Chat),
	}
}

func (s *Store) WithClock(clock Clock) {
	s.clock = clock
}

func (s *Store) chat(chatID string) *Chat {
	s.mu.RLock()
	c := s.chats[chatID]
	s.mu.RUnlock()
	if c != nil {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c = s.chats[chatID]; c != nil {
		return c
	}
	c = &Chat{
		admins:       make(map[string]struct{}),
		warns:        make(map[string]int),
		mutes:        make(map[string]time.Time),
		banned:       make(map[string]struct{}),
		active:       make(map[string]struct{}),
		lastActivity: s.clock.Now(),
	}
	s.chats[chatID] = c
	return c
}

// Ensure initializes the chat record if it does not exist yet.
func (s *Store) Ensure(chatID string) {
	s.chat(chatID)
}

func (s *Store) AddAdmin(chatID, userID string) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.admins[userID] = struct{}{}
}

func (s *Store) RemoveAdmin(chatID, userID string) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.admins, userID)
}

func (s *Store) IsAdmin(chatID, userID string) bool {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.admins[userID]
	return ok
}

func (s *Store) Admins(chatID string) []string {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.admins))
	for id := range c.admins {
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) IncrementWarning(chatID, userID string) int {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warns[userID]++
	return c.warns[userID]
}

func (s *Store) WarningCount(chatID, userID string) int {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warns[userID]
}

func (s *Store) SetMute(chatID, userID string, until time.Time) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutes[userID] = until
}

func (s *Store) Mute(chatID, userID string) (time.Time, bool) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.mutes[userID]
	return until, ok
}

func (s *Store) ClearMute(chatID, userID string) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.mutes, userID)
}

// ClearMuteIfExpired removes the mute entry only if its stored expiry is
// due at now. A timer that fires after the user was re-muted with a later
// expiry finds the entry not yet due and leaves it alone.
func (s *Store) ClearMuteIfExpired(chatID, userID string, now time.Time) bool {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.mutes[userID]
	if !ok || until.After(now) {
		return false
	}
	delete(c.mutes, userID)
	return true
}

func (s *Store) AddBan(chatID, userID string) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banned[userID] = struct{}{}
}

func (s *Store) RemoveBan(chatID, userID string) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.banned, userID)
}

func (s *Store) IsBanned(chatID, userID string) bool {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.banned[userID]
	return ok
}

func (s *Store) RecordActivity(chatID, userID string) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[userID] = struct{}{}
	c.lastActivity = s.clock.Now()
}

func (s *Store) RecentlyActive(chatID string) []string {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) SetVictim(chatID, userID string) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.victim = userID
}

func (s *Store) Victim(chatID string) (string, bool) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.victim, c.victim != ""
}

func (s *Store) LastActivity(chatID string) time.Time {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// TouchActivity bumps the last-activity timestamp without adding anyone to
// the active pool. The silence watchdog uses it after nudging a chat.
func (s *Store) TouchActivity(chatID string) {
	c := s.chat(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = s.clock.Now()
}

// IdleChats returns the ids of chats whose last activity is older than
// threshold at now.
func (s *Store) IdleChats(threshold time.Duration, now time.Time) []string {
	s.mu.RLock()
	chats := make(map[string]*Chat, len(s.chats))
	for id, c := range s.chats {
		chats[id] = c
	}
	s.mu.RUnlock()

	var idle []string
	for id, c := range chats {
		c.mu.Lock()
		last := c.lastActivity
		c.mu.Unlock()
		if now.Sub(last) > threshold {
			idle = append(idle, id)
		}
	}
	return idle
}
