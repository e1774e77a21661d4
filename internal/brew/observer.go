package brew

import "github.com/chu3/brewpilot/internal/domain"

// Compile-time interface checks.
var (
	_ domain.SessionObserver = (*NopObserver)(nil)
	_ domain.SessionObserver = (MultiObserver)(nil)
)

// NopObserver discards every session event. Used when a surface has
// nothing to observe.
type NopObserver struct{}

func (NopObserver) RunningChanged(bool)                    {}
func (NopObserver) StageChanged(domain.StageChange)        {}
func (NopObserver) ScheduleChanged([]domain.ExpandedStage) {}
func (NopObserver) CountdownChanged(int)                   {}
func (NopObserver) Completed(domain.BrewNote, bool)        {}
func (NopObserver) SessionReset()                          {}

// MultiObserver fans session events out to several observers in order.
type MultiObserver []domain.SessionObserver

func (m MultiObserver) RunningChanged(running bool) {
	for _, o := range m {
		o.RunningChanged(running)
	}
}

func (m MultiObserver) StageChanged(change domain.StageChange) {
	for _, o := range m {
		o.StageChanged(change)
	}
}

func (m MultiObserver) ScheduleChanged(stages []domain.ExpandedStage) {
	for _, o := range m {
		o.ScheduleChanged(stages)
	}
}

func (m MultiObserver) CountdownChanged(remaining int) {
	for _, o := range m {
		o.CountdownChanged(remaining)
	}
}

func (m MultiObserver) Completed(note domain.BrewNote, skipped bool) {
	for _, o := range m {
		o.Completed(note, skipped)
	}
}

func (m MultiObserver) SessionReset() {
	for _, o := range m {
		o.SessionReset()
	}
}
