package domain

// Cue identifies a discrete audio/haptic signal fired at a timeline
// boundary.
type Cue int

const (
	// CueStageStart fires when any expanded stage begins.
	CueStageStart Cue = iota
	// CuePreEnd fires 1–2 seconds before any stage's end.
	CuePreEnd
	// CuePourPreEnd fires 1–2 seconds before a pour stage's end.
	CuePourPreEnd
	// CuePourEnd fires when a pour stage ends.
	CuePourEnd
	// CueComplete fires exactly once when the session completes.
	CueComplete
)

// String returns a human-readable cue name.
func (c Cue) String() string {
	switch c {
	case CueStageStart:
		return "stage_start"
	case CuePreEnd:
		return "pre_end"
	case CuePourPreEnd:
		return "pour_pre_end"
	case CuePourEnd:
		return "pour_end"
	case CueComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// HapticStrength grades a haptic pulse.
type HapticStrength int

const (
	HapticLight HapticStrength = iota
	HapticMedium
	HapticStrong
)
