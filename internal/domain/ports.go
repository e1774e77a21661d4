package domain

import "context"

// MethodSource provides brewing methods. Implementations can be
// in-memory (seeded), file-based, or API-backed.
type MethodSource interface {
	List(ctx context.Context) ([]MethodSummary, error)
	Get(ctx context.Context, id string) (*Method, error)
	Search(ctx context.Context, query string) ([]MethodSummary, error)
}

// NoteStore persists completed-session summaries.
type NoteStore interface {
	Save(ctx context.Context, note *BrewNote) error
	Get(ctx context.Context, id string) (*BrewNote, error)
	List(ctx context.Context) ([]*BrewNote, error)
	Rate(ctx context.Context, id string, rating int, taste TasteRatings, comment string) error
}

// CueSink plays audio/haptic cues. Calls are fire-and-forget: an
// implementation on a platform without audio or haptics degrades
// silently rather than failing the session.
type CueSink interface {
	Play(cue Cue)
}

// Haptics is an opaque vibration capability. Absence is tolerated, not
// surfaced as an error.
type Haptics interface {
	Available() bool
	Pulse(strength HapticStrength)
}

// SessionObserver receives session lifecycle events from the engine.
// It replaces any ambient event channel: observers are injected into
// the engine constructor and fan-out is explicit.
//
// Callbacks are invoked from the engine's tick goroutine and must not
// block.
type SessionObserver interface {
	// RunningChanged fires whenever the running state toggles.
	RunningChanged(running bool)
	// StageChanged fires on every tick while running.
	StageChanged(change StageChange)
	// ScheduleChanged fires once whenever the method is (re)loaded and
	// the expanded stage list is recomputed.
	ScheduleChanged(stages []ExpandedStage)
	// CountdownChanged fires on each pre-roll tick; a negative value
	// signals that the countdown has cleared.
	CountdownChanged(remaining int)
	// Completed fires exactly once per completed session.
	Completed(note BrewNote, skipped bool)
	// SessionReset fires when the session is explicitly reset so
	// dependent surfaces can re-synchronize.
	SessionReset()
}

// IntentParser converts raw user input into structured intents.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}

// Notifier delivers messages to the user.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
