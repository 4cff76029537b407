package activity

import (
	"time"

	"vanilla-reaper/internal/state"
)

// Tracker records message arrivals and membership churn into the chat
// state store. No role checks, no failure modes.
type Tracker struct {
	store *state.Store
}

func NewTracker(store *state.Store) *Tracker {
	return &Tracker{store: store}
}

func (t *Tracker) RecordMessage(chatID, userID string) {
	t.store.RecordActivity(chatID, userID)
}

func (t *Tracker) RecordMembership(chatID, userID string, joined bool) {
	t.store.Ensure(chatID)
	if joined {
		t.store.RecordActivity(chatID, userID)
	}
}

func (t *Tracker) LastActivity(chatID string) time.Time {
	return t.store.LastActivity(chatID)
}
