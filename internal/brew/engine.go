// Package brew implements the staged brewing session: the state
// machine, the one-second timeline clock, and the cue dispatch
// decisions driven by it.
package brew

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
	"github.com/chu3/brewpilot/internal/schedule"
)

// Option configures the engine.
type Option func(*Engine)

// WithTickInterval sets the real-time spacing of clock ticks. Each
// tick still advances exactly one logical second, so tests can run the
// timeline fast.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tickInterval = d
		}
	}
}

// WithCountdownSeconds sets the pre-roll countdown length. Zero skips
// the countdown entirely.
func WithCountdownSeconds(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.countdownFrom = n
		}
	}
}

// WithPourDivisor sets the divisor used to infer pour durations when a
// stage has none.
func WithPourDivisor(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.divisor = n
		}
	}
}

// Engine is the brewing session state machine. It owns the timeline
// clock and the expanded schedule, and reports everything that happens
// through the injected observer and cue sink.
//
// The schedule is snapshotted once per SetMethod and never mutated
// while ticks are in flight; the countdown and the clock share one run
// loop, so at most one timer is ever live.
type Engine struct {
	observer domain.SessionObserver
	cues     domain.CueSink
	log      *logger.Logger

	tickInterval  time.Duration
	countdownFrom int
	divisor       int

	mu          sync.Mutex
	method      *domain.Method
	equipmentID string
	stages      []domain.ExpandedStage
	phase       domain.Phase
	elapsed     time.Duration
	countdown   int
	startedOnce bool
	sessionID   string
	pausedAt    time.Time
	stopCh      chan struct{}
	loopLive    bool
}

// Snapshot is a consistent read of the session for display surfaces.
type Snapshot struct {
	Phase       domain.Phase
	SessionID   string
	MethodID    string
	MethodName  string
	Countdown   int
	Elapsed     time.Duration
	Total       time.Duration
	StageIndex  int
	StageCount  int
	StageLabel  string
	StageEnd    time.Duration
	Waiting     bool
	WaterNow    float64
	WaterTarget float64
	FlowRate    float64
	PausedFor   time.Duration
}

// New creates an engine. A nil observer or cue sink degrades to a
// no-op.
func New(observer domain.SessionObserver, cues domain.CueSink, log *logger.Logger, opts ...Option) *Engine {
	if observer == nil {
		observer = NopObserver{}
	}
	e := &Engine{
		observer:      observer,
		cues:          cues,
		log:           log,
		tickInterval:  1 * time.Second,
		countdownFrom: 3,
		divisor:       schedule.DefaultPourDivisor,
		phase:         domain.PhaseIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetEquipment records the equipment id carried into brew notes.
func (e *Engine) SetEquipment(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.equipmentID = id
}

// SetMethod loads a brewing method and recomputes the expanded
// schedule. Any session in progress is reset first. A nil method
// unloads the current one.
func (e *Engine) SetMethod(m *domain.Method) {
	e.mu.Lock()
	var emit []func()
	if e.phase != domain.PhaseIdle {
		e.resetLocked(&emit)
	}
	e.method = m
	e.stages = nil
	if m != nil {
		e.stages = schedule.ExpandWith(m.Stages, e.divisor)
	}
	stages := e.snapshotStagesLocked()
	e.mu.Unlock()

	for _, fn := range emit {
		fn()
	}
	e.observer.ScheduleChanged(stages)
	if m != nil {
		e.log.Info("method loaded: %s (%d macro -> %d expanded stages)", m.Name, len(m.Stages), len(stages))
	} else {
		e.log.Info("method unloaded")
	}
}

// Method returns the loaded method, or nil.
func (e *Engine) Method() *domain.Method {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.method
}

// ExpandedStages returns a copy of the current schedule.
func (e *Engine) ExpandedStages() []domain.ExpandedStage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotStagesLocked()
}

// SyncBrewed marks an idle session as already completed, used to
// re-synchronize with an externally tracked brewed flag on startup.
// No cues or notes fire; the next Start resets implicitly.
func (e *Engine) SyncBrewed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == domain.PhaseIdle {
		e.phase = domain.PhaseCompleted
	}
}

// Start begins or resumes the session.
//
// With no method loaded this is an inert no-op. While running or
// counting down it does nothing. From paused with time on the clock it
// resumes without a new countdown. From completed it resets first and
// starts fresh.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.method == nil || len(e.stages) == 0 {
		e.mu.Unlock()
		e.log.Debug("start ignored: no method loaded")
		return
	}

	var emit []func()
	switch e.phase {
	case domain.PhaseRunning, domain.PhaseCountdown:
		e.mu.Unlock()
		return

	case domain.PhasePaused:
		if e.startedOnce && e.elapsed > 0 {
			e.phase = domain.PhaseRunning
			e.pausedAt = time.Time{}
			e.startLoopLocked()
			at := e.elapsed
			emit = append(emit, func() { e.observer.RunningChanged(true) })
			e.mu.Unlock()
			for _, fn := range emit {
				fn()
			}
			e.log.Info("session resumed at %s", at)
			return
		}
		e.resetLocked(&emit)

	case domain.PhaseCompleted:
		e.resetLocked(&emit)
	}

	e.startedOnce = true
	e.sessionID = uuid.NewString()
	if e.countdownFrom > 0 {
		e.phase = domain.PhaseCountdown
		e.countdown = e.countdownFrom
		remaining := e.countdown
		emit = append(emit, func() { e.observer.CountdownChanged(remaining) })
	} else {
		e.beginRunningLocked(&emit)
	}
	e.startLoopLocked()
	sid := e.sessionID
	e.mu.Unlock()

	for _, fn := range emit {
		fn()
	}
	e.log.Info("session %s started (countdown=%d)", sid[:8], e.countdownFrom)
}

// Resume is Start under its other name; kept for call-site clarity.
func (e *Engine) Resume() { e.Start() }

// Pause freezes the clock. Elapsed time is preserved; paused time is
// simply never counted. No-op unless running.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.phase != domain.PhaseRunning {
		e.mu.Unlock()
		return
	}
	e.stopLoopLocked()
	e.phase = domain.PhasePaused
	e.pausedAt = time.Now()
	at := e.elapsed
	e.mu.Unlock()

	e.observer.RunningChanged(false)
	e.log.Info("session paused at %s", at)
}

// Reset returns the session to idle from any state, clearing timers,
// countdown, and completion flags, and notifies collaborators so
// dependent surfaces re-synchronize.
func (e *Engine) Reset() {
	e.mu.Lock()
	var emit []func()
	e.resetLocked(&emit)
	e.mu.Unlock()

	for _, fn := range emit {
		fn()
	}
	e.log.Info("session reset")
}

// Skip ends the session early. It is only valid while the current
// expanded stage is the final one and a wait — "waiting out" the last
// stage. Elapsed jumps to the timeline end and the normal completion
// sequence runs, tagged as skipped.
func (e *Engine) Skip() error {
	e.mu.Lock()
	if e.phase != domain.PhaseRunning && e.phase != domain.PhasePaused {
		e.mu.Unlock()
		return domain.ErrNotRunning
	}

	idx := schedule.IndexAt(e.stages, e.elapsed)
	last := len(e.stages) - 1
	if idx != last || e.stages[idx].Kind != domain.StageWait {
		e.mu.Unlock()
		return domain.ErrSkipUnavailable
	}

	e.elapsed = e.stages[last].End
	var emit []func()
	e.completeLocked(true, &emit)
	e.mu.Unlock()

	for _, fn := range emit {
		fn()
	}
	return nil
}

// Snapshot returns a consistent view of the session, with water and
// flow derived from the clock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Phase:      e.phase,
		SessionID:  e.sessionID,
		Countdown:  e.countdown,
		Elapsed:    e.elapsed,
		StageIndex: -1,
		StageCount: len(e.stages),
	}
	if e.method != nil {
		snap.MethodID = e.method.ID
		snap.MethodName = e.method.Name
	}
	if len(e.stages) > 0 {
		snap.Total = e.stages[len(e.stages)-1].End
	}
	if idx := schedule.IndexAt(e.stages, e.elapsed); idx >= 0 {
		st := e.stages[idx]
		snap.StageIndex = idx
		snap.StageLabel = st.Label
		snap.StageEnd = st.End
		snap.Waiting = st.Kind == domain.StageWait
		snap.WaterTarget = schedule.ParseWater(st.Water)
		snap.FlowRate = schedule.FlowRate(e.stages, idx)
	}
	snap.WaterNow = schedule.WaterAt(e.stages, e.elapsed)
	if e.phase == domain.PhasePaused && !e.pausedAt.IsZero() {
		snap.PausedFor = time.Since(e.pausedAt)
	}
	return snap
}

// ── internals ────────────────────────────────────────────────────

// tick advances the session by one logical second. Countdown and clock
// share this entry point, so the two can never tick concurrently.
func (e *Engine) tick() {
	e.mu.Lock()
	var emit []func()

	switch e.phase {
	case domain.PhaseCountdown:
		e.countdown--
		if e.countdown > 0 {
			remaining := e.countdown
			emit = append(emit, func() { e.observer.CountdownChanged(remaining) })
		} else {
			e.beginRunningLocked(&emit)
		}

	case domain.PhaseRunning:
		if len(e.stages) == 0 {
			break
		}
		prev := e.elapsed
		e.elapsed += time.Second

		done := false
		if last := e.stages[len(e.stages)-1].End; e.elapsed > last {
			// Clamp so the reported total always equals the recipe's
			// total time.
			e.elapsed = last
			done = true
		}

		for _, cue := range Decide(prev, e.elapsed, e.stages) {
			c := cue
			emit = append(emit, func() { e.playCue(c) })
		}

		change := e.stageChangeLocked()
		emit = append(emit, func() { e.observer.StageChanged(change) })

		if done {
			e.completeLocked(false, &emit)
		}
	}

	e.mu.Unlock()
	for _, fn := range emit {
		fn()
	}
}

// beginRunningLocked transitions countdown → running and fires the
// opening cues. Stage 0 starts at offset zero, which no tick crossing
// can detect, so its start cue fires here.
func (e *Engine) beginRunningLocked(emit *[]func()) {
	e.phase = domain.PhaseRunning
	e.countdown = 0
	*emit = append(*emit,
		func() { e.observer.CountdownChanged(-1) },
		func() { e.observer.RunningChanged(true) },
		func() { e.playCue(domain.CueStageStart) },
	)
	change := e.stageChangeLocked()
	*emit = append(*emit, func() { e.observer.StageChanged(change) })
}

// completeLocked runs the completion sequence exactly once.
func (e *Engine) completeLocked(skipped bool, emit *[]func()) {
	if e.phase == domain.PhaseCompleted {
		return
	}
	e.stopLoopLocked()
	e.phase = domain.PhaseCompleted

	note := domain.BrewNote{
		ID:          uuid.NewString(),
		EquipmentID: e.equipmentID,
		TotalTime:   e.elapsed,
		Skipped:     skipped,
		CreatedAt:   time.Now(),
	}
	if e.method != nil {
		note.MethodID = e.method.ID
		note.MethodName = e.method.Name
		note.Params = e.method.Params
	}

	total := e.elapsed
	*emit = append(*emit,
		func() { e.playCue(domain.CueComplete) },
		func() { e.observer.Completed(note, skipped) },
		func() { e.observer.RunningChanged(false) },
		func() { e.log.Info("session completed in %s (skipped=%v)", total, skipped) },
	)
}

// resetLocked clears all session state and queues the reset
// notifications.
func (e *Engine) resetLocked(emit *[]func()) {
	wasRunning := e.phase == domain.PhaseRunning || e.phase == domain.PhaseCountdown
	e.stopLoopLocked()
	e.phase = domain.PhaseIdle
	e.elapsed = 0
	e.countdown = 0
	e.startedOnce = false
	e.sessionID = ""
	e.pausedAt = time.Time{}

	if wasRunning {
		*emit = append(*emit, func() { e.observer.RunningChanged(false) })
	}
	*emit = append(*emit,
		func() { e.observer.CountdownChanged(-1) },
		func() { e.observer.SessionReset() },
	)
}

func (e *Engine) stageChangeLocked() domain.StageChange {
	change := domain.StageChange{Index: -1}
	idx := schedule.IndexAt(e.stages, e.elapsed)
	if idx < 0 {
		return change
	}
	st := e.stages[idx]
	change.Index = idx
	change.Waiting = st.Kind == domain.StageWait
	if dur := st.Duration(); dur > 0 {
		change.Progress = float64(e.elapsed-st.Start) / float64(dur)
	}
	if change.Progress > 1 {
		change.Progress = 1
	}
	return change
}

func (e *Engine) snapshotStagesLocked() []domain.ExpandedStage {
	out := make([]domain.ExpandedStage, len(e.stages))
	copy(out, e.stages)
	return out
}

func (e *Engine) playCue(cue domain.Cue) {
	if e.cues != nil {
		e.cues.Play(cue)
	}
}

// startLoopLocked launches the shared countdown/clock loop if it isn't
// already alive.
func (e *Engine) startLoopLocked() {
	if e.loopLive {
		return
	}
	e.stopCh = make(chan struct{})
	e.loopLive = true
	go e.run(e.stopCh)
}

func (e *Engine) stopLoopLocked() {
	if !e.loopLive {
		return
	}
	close(e.stopCh)
	e.loopLive = false
}

func (e *Engine) run(stop <-chan struct{}) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}
