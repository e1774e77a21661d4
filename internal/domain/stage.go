package domain

import "time"

// StageKind classifies an expanded sub-stage.
type StageKind int

const (
	// StagePour is a sub-interval during which water is actively and
	// linearly delivered toward a target.
	StagePour StageKind = iota
	// StageWait is a sub-interval with no water delivery; the prior
	// target remains in effect.
	StageWait
)

// String returns a human-readable stage kind.
func (k StageKind) String() string {
	switch k {
	case StagePour:
		return "pour"
	case StageWait:
		return "wait"
	default:
		return "unknown"
	}
}

// ExpandedStage is a derived micro sub-stage produced by splitting a
// macro Stage into an alternating pour/wait timeline. The expanded list
// is computed once per method load and is read-only for the rest of the
// session.
type ExpandedStage struct {
	Kind  StageKind
	Start time.Duration // absolute offset from recipe start
	End   time.Duration

	// Water is the macro stage's cumulative target, carried unchanged
	// on both the pour and its trailing wait (waits add no water).
	Water string

	// OriginalIndex points back at the macro stage that produced this
	// sub-stage.
	OriginalIndex int

	PourTime    *time.Duration
	Label       string
	Detail      string
	PourType    string
	ValveStatus string
}

// Duration returns the length of the sub-stage.
func (s ExpandedStage) Duration() time.Duration {
	return s.End - s.Start
}

// StageChange is the per-tick progress report delivered to observers.
type StageChange struct {
	Index    int     // index into the expanded list; -1 before start
	Progress float64 // fractional progress within the stage, [0,1]
	Waiting  bool    // true when the current sub-stage is a wait
}
