package domain

// Phase tracks the lifecycle of a brewing session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCountdown
	PhaseRunning
	PhasePaused
	PhaseCompleted
)

// String returns a human-readable session phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCountdown:
		return "countdown"
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}
