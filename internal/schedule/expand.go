// Package schedule turns a sparse, user-authored stage list into a
// fine-grained pour/wait timeline and computes water delivery against
// it. Everything here is pure: same input, same output, no side
// effects.
package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/chu3/brewpilot/internal/domain"
)

// DefaultPourDivisor is the policy ratio used when a stage has no
// explicit pour duration: the pour takes 1/DefaultPourDivisor of the
// stage's total span, rounded down to a whole second. Inherited from
// the recipes this tool grew up with; override per user via
// ExpandWith.
const DefaultPourDivisor = 3

// Labels applied to derived wait sub-stages.
const (
	WaitLabel  = "Waiting"
	WaitDetail = "Let the water draw down"
)

// Expand derives the pour/wait timeline from a macro stage list using
// the default pour divisor. Empty input yields empty output.
func Expand(stages []domain.Stage) []domain.ExpandedStage {
	return ExpandWith(stages, DefaultPourDivisor)
}

// ExpandWith is Expand with a configurable pour divisor. Divisors
// below 1 fall back to the default.
//
// Per macro stage the effective pour duration is the explicit PourTime
// when set (an explicit zero is meaningful: no pour), otherwise
// span/divisor floored to a second. A positive pour emits a pour
// sub-stage, then a trailing wait for whatever span remains. A
// zero-length pour collapses the whole stage into a single wait — one
// that keeps the author's label when the zero was explicit (a named
// swirl or rest step), or takes the default waiting label when the
// stage was simply too short to infer a pour.
//
// Zero-width sub-stages are never emitted: a macro stage whose span is
// zero contributes nothing.
func ExpandWith(stages []domain.Stage, divisor int) []domain.ExpandedStage {
	if divisor < 1 {
		divisor = DefaultPourDivisor
	}

	out := make([]domain.ExpandedStage, 0, len(stages)*2)
	for i, st := range stages {
		prev := domain.PrevTime(stages, i)
		span := st.Time - prev
		if span <= 0 {
			continue
		}

		pour := pourDuration(st, span, divisor)
		if pour > span {
			pour = span
		}

		if pour > 0 {
			out = append(out, domain.ExpandedStage{
				Kind:          domain.StagePour,
				Start:         prev,
				End:           prev + pour,
				Water:         st.Water,
				OriginalIndex: i,
				PourTime:      st.PourTime,
				Label:         st.Label,
				Detail:        st.Detail,
				PourType:      st.PourType,
				ValveStatus:   st.ValveStatus,
			})
			if prev+pour < st.Time {
				out = append(out, domain.ExpandedStage{
					Kind:          domain.StageWait,
					Start:         prev + pour,
					End:           st.Time,
					Water:         st.Water,
					OriginalIndex: i,
					Label:         WaitLabel,
					Detail:        WaitDetail,
					ValveStatus:   st.ValveStatus,
				})
			}
			continue
		}

		// No pour at all. An explicit zero keeps the author's label,
		// an inferred zero gets the generic waiting label.
		wait := domain.ExpandedStage{
			Kind:          domain.StageWait,
			Start:         prev,
			End:           st.Time,
			Water:         st.Water,
			OriginalIndex: i,
			PourTime:      st.PourTime,
			Label:         WaitLabel,
			Detail:        WaitDetail,
			ValveStatus:   st.ValveStatus,
		}
		if st.PourTime != nil {
			wait.Label = st.Label
			wait.Detail = st.Detail
			wait.PourType = st.PourType
		}
		out = append(out, wait)
	}
	return out
}

// pourDuration resolves the effective pour duration for one stage.
func pourDuration(st domain.Stage, span time.Duration, divisor int) time.Duration {
	if st.PourTime != nil {
		if *st.PourTime < 0 {
			return 0
		}
		return *st.PourTime
	}
	secs := int64(span/time.Second) / int64(divisor)
	return time.Duration(secs) * time.Second
}

// ParseWater extracts the numeric gram amount from an authored water
// string like "150g" or "90.5 g". Malformed values degrade to 0 —
// recipe data is user-editable and must never crash a session.
func ParseWater(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		end++
	}
	if end == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}
