package schedule

import (
	"time"

	"github.com/chu3/brewpilot/internal/domain"
)

// IndexAt returns the index of the expanded stage that owns the given
// elapsed offset, or -1 when none does. Boundaries are inclusive on
// both ends with first match winning, so at an exact boundary second
// the ending stage is still current — water at a pour/wait boundary
// reads as the completed target.
func IndexAt(stages []domain.ExpandedStage, elapsed time.Duration) int {
	for i, st := range stages {
		if st.Start <= elapsed && elapsed <= st.End {
			return i
		}
	}
	return -1
}

// WaterAt returns the grams of water delivered at the given elapsed
// offset. Within a pour the value is linearly interpolated between the
// previous stage's cumulative target and the current one; during a
// wait (and past the timeline's end) it is the target already reached.
// The value never exceeds the target.
func WaterAt(stages []domain.ExpandedStage, elapsed time.Duration) float64 {
	if len(stages) == 0 {
		return 0
	}
	idx := IndexAt(stages, elapsed)
	if idx < 0 {
		if elapsed > stages[len(stages)-1].End {
			return ParseWater(stages[len(stages)-1].Water)
		}
		return 0
	}

	st := stages[idx]
	target := ParseWater(st.Water)
	if st.Kind == domain.StageWait {
		return target
	}

	prev := previousTarget(stages, idx)
	dur := st.Duration()
	if dur <= 0 {
		return target
	}

	frac := float64(elapsed-st.Start) / float64(dur)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return prev + frac*(target-prev)
}

// FlowRate returns the constant delivery rate in grams per second for
// the expanded stage at idx. Waits, zero-duration stages, and
// out-of-range indexes flow at 0.
func FlowRate(stages []domain.ExpandedStage, idx int) float64 {
	if idx < 0 || idx >= len(stages) {
		return 0
	}
	st := stages[idx]
	if st.Kind != domain.StagePour {
		return 0
	}
	secs := st.Duration().Seconds()
	if secs <= 0 {
		return 0
	}
	return (ParseWater(st.Water) - previousTarget(stages, idx)) / secs
}

// previousTarget returns the cumulative water already delivered before
// the stage at idx began. Expanded stages carry cumulative targets, so
// this is simply the preceding stage's value.
func previousTarget(stages []domain.ExpandedStage, idx int) float64 {
	if idx <= 0 {
		return 0
	}
	return ParseWater(stages[idx-1].Water)
}
