package chance

import (
	"context"
	"math/rand"
	"time"

	"vanilla-reaper/internal/moderation"
)

type Outcome int

const (
	OutcomeNothing Outcome = iota
	OutcomeShortMute
	OutcomeLongMute
	OutcomeRoast
	OutcomeHonor
	OutcomeVictim

	outcomeCount = 6
)

const (
	ShortMuteDuration = 30 * time.Second
	LongMuteDuration  = 300 * time.Second
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNothing:
		return "nothing"
	case OutcomeShortMute:
		return "short_mute"
	case OutcomeLongMute:
		return "long_mute"
	case OutcomeRoast:
		return "roast"
	case OutcomeHonor:
		return "honor"
	case OutcomeVictim:
		return "victim"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome    Outcome
	MutedUntil time.Time
	// MuteErr is set when a mute outcome was drawn but the platform
	// rejected the restriction. Roles are never checked on this path.
	MuteErr error
}

// Engine draws one of six equally likely roulette outcomes. Any chat
// member may spin it; the mute outcomes go through the moderation engine's
// system-level path.
type Engine struct {
	mod  *moderation.Engine
	intn func(int) int
}

func New(mod *moderation.Engine) *Engine {
	return &Engine{mod: mod, intn: rand.Intn}
}

func (e *Engine) WithRand(intn func(int) int) {
	e.intn = intn
}

func (e *Engine) Roll(ctx context.Context, targetID, chatID string) Result {
	result := Result{Outcome: Outcome(e.intn(outcomeCount))}

	switch result.Outcome {
	case OutcomeShortMute:
		result.MutedUntil, result.MuteErr = e.mod.SystemMute(ctx, targetID, chatID, ShortMuteDuration)
	case OutcomeLongMute:
		result.MutedUntil, result.MuteErr = e.mod.SystemMute(ctx, targetID, chatID, LongMuteDuration)
	case OutcomeVictim:
		e.mod.MarkVictim(ctx, targetID, chatID)
	}
	return result
}
