package brew

import (
	"time"

	"github.com/chu3/brewpilot/internal/domain"
)

// preEndWindow is how far before a stage boundary the warning cues
// fire.
const preEndWindow = 2 * time.Second

// Decide returns the cues that fire when elapsed time moves from prev
// to curr against the expanded timeline. Everything is edge-triggered:
// a cue fires on the tick that crosses its boundary and never again,
// regardless of how the caller spaces its ticks. Wall-clock debouncing
// is left to the sink as a safety net only.
func Decide(prev, curr time.Duration, stages []domain.ExpandedStage) []domain.Cue {
	if curr <= prev {
		return nil
	}

	var cues []domain.Cue
	for _, st := range stages {
		// A stage beginning mid-timeline. The very first stage starts
		// at zero, which no tick crosses — the engine fires that one
		// when the clock starts.
		if crossed(prev, curr, st.Start) && st.Start > 0 {
			cues = append(cues, domain.CueStageStart)
		}

		// Warning ticks inside the pre-end window.
		for warn := st.End - preEndWindow; warn < st.End; warn += time.Second {
			if warn > 0 && crossed(prev, curr, warn) {
				if st.Kind == domain.StagePour {
					cues = append(cues, domain.CuePourPreEnd)
				} else {
					cues = append(cues, domain.CuePreEnd)
				}
			}
		}

		if st.Kind == domain.StagePour && crossed(prev, curr, st.End) {
			cues = append(cues, domain.CuePourEnd)
		}
	}
	return cues
}

// crossed reports whether the boundary lies in the half-open interval
// (prev, curr].
func crossed(prev, curr, boundary time.Duration) bool {
	return prev < boundary && boundary <= curr
}
