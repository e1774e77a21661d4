package brew

import (
	"sync"
	"testing"
	"time"

	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
)

// recordingObserver captures session events for assertions.
type recordingObserver struct {
	mu         sync.Mutex
	running    []bool
	changes    []domain.StageChange
	schedules  int
	countdowns []int
	notes      []domain.BrewNote
	skipped    []bool
	resets     int
}

func (o *recordingObserver) RunningChanged(running bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = append(o.running, running)
}

func (o *recordingObserver) StageChanged(c domain.StageChange) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, c)
}

func (o *recordingObserver) ScheduleChanged([]domain.ExpandedStage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.schedules++
}

func (o *recordingObserver) CountdownChanged(remaining int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.countdowns = append(o.countdowns, remaining)
}

func (o *recordingObserver) Completed(note domain.BrewNote, skipped bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notes = append(o.notes, note)
	o.skipped = append(o.skipped, skipped)
}

func (o *recordingObserver) SessionReset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resets++
}

func (o *recordingObserver) completions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.notes)
}

func (o *recordingObserver) lastNote() domain.BrewNote {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.notes[len(o.notes)-1]
}

// recordingSink captures played cues.
type recordingSink struct {
	mu   sync.Mutex
	cues []domain.Cue
}

func (s *recordingSink) Play(cue domain.Cue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cues = append(s.cues, cue)
}

func (s *recordingSink) count(cue domain.Cue) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.cues {
		if c == cue {
			n++
		}
	}
	return n
}

// testMethod is a 9-second two-stage method:
// pour [0,1] → wait [1,3] → pour [3,5] → wait [5,9].
func testMethod() *domain.Method {
	return &domain.Method{
		ID:   "test-v60",
		Name: "Test V60",
		Params: domain.BrewParams{
			CoffeeGrams: 15,
			WaterGrams:  100,
			Ratio:       "1:15",
		},
		Stages: []domain.Stage{
			{Label: "Bloom", Time: secs(3), Water: "30g"},
			{Label: "Main pour", Time: secs(9), Water: "100g"},
		},
	}
}

func setupEngine(t *testing.T, opts ...Option) (*Engine, *recordingObserver, *recordingSink) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	obs := &recordingObserver{}
	sink := &recordingSink{}
	base := []Option{
		WithTickInterval(2 * time.Millisecond),
		WithCountdownSeconds(0),
	}
	eng := New(obs, sink, log, append(base, opts...)...)
	t.Cleanup(eng.Reset)
	return eng, obs, sink
}

// waitFor polls until cond holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestStartWithoutMethodIsInert(t *testing.T) {
	eng, obs, sink := setupEngine(t)

	eng.Start()
	time.Sleep(20 * time.Millisecond)

	if got := eng.Snapshot().Phase; got != domain.PhaseIdle {
		t.Fatalf("phase = %s, want idle", got)
	}
	obs.mu.Lock()
	events := len(obs.running) + len(obs.changes) + len(obs.countdowns) + len(obs.notes)
	obs.mu.Unlock()
	if events != 0 {
		t.Fatalf("expected no observer events, got %d", events)
	}
	sink.mu.Lock()
	cues := len(sink.cues)
	sink.mu.Unlock()
	if cues != 0 {
		t.Fatalf("expected no cues, got %d", cues)
	}
}

func TestSetMethodPublishesSchedule(t *testing.T) {
	eng, obs, _ := setupEngine(t)

	eng.SetMethod(testMethod())

	obs.mu.Lock()
	schedules := obs.schedules
	obs.mu.Unlock()
	if schedules != 1 {
		t.Fatalf("expected 1 schedule event, got %d", schedules)
	}
	if got := len(eng.ExpandedStages()); got != 4 {
		t.Fatalf("expected 4 expanded stages, got %d", got)
	}
}

func TestCountdownPreRoll(t *testing.T) {
	eng, obs, _ := setupEngine(t, WithCountdownSeconds(3))
	eng.SetMethod(testMethod())

	eng.Start()
	waitFor(t, "running", func() bool {
		return eng.Snapshot().Phase == domain.PhaseRunning
	})

	obs.mu.Lock()
	countdowns := append([]int(nil), obs.countdowns...)
	obs.mu.Unlock()

	want := []int{3, 2, 1, -1}
	if len(countdowns) < len(want) {
		t.Fatalf("countdown events %v, want prefix %v", countdowns, want)
	}
	for i, w := range want {
		if countdowns[i] != w {
			t.Fatalf("countdown events %v, want prefix %v", countdowns, want)
		}
	}
}

func TestCompletionFiresExactlyOnce(t *testing.T) {
	eng, obs, sink := setupEngine(t)
	eng.SetMethod(testMethod())

	eng.Start()
	waitFor(t, "completion", func() bool { return obs.completions() == 1 })

	// Let plenty of further tick intervals pass; nothing may re-fire.
	time.Sleep(40 * time.Millisecond)

	if got := obs.completions(); got != 1 {
		t.Fatalf("completion fired %d times, want 1", got)
	}
	if got := sink.count(domain.CueComplete); got != 1 {
		t.Fatalf("completion cue played %d times, want 1", got)
	}

	snap := eng.Snapshot()
	if snap.Phase != domain.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", snap.Phase)
	}
	if snap.Elapsed != secs(9) {
		t.Fatalf("elapsed = %s, want clamped to 9s", snap.Elapsed)
	}

	note := obs.lastNote()
	if note.MethodName != "Test V60" || note.TotalTime != secs(9) {
		t.Fatalf("note = %+v, want method name and 9s total", note)
	}
	if note.Skipped {
		t.Fatal("natural completion must not be tagged skipped")
	}
	if note.Rated() {
		t.Fatal("fresh note must start unrated")
	}
}

func TestPausePreservesElapsed(t *testing.T) {
	eng, obs, _ := setupEngine(t, WithTickInterval(20*time.Millisecond))
	eng.SetMethod(testMethod())

	eng.Start()
	waitFor(t, "some elapsed time", func() bool {
		return eng.Snapshot().Elapsed >= secs(2)
	})

	eng.Pause()
	at := eng.Snapshot().Elapsed

	// Ticks are suppressed while paused; elapsed must not move.
	time.Sleep(30 * time.Millisecond)
	if got := eng.Snapshot().Elapsed; got != at {
		t.Fatalf("elapsed moved while paused: %s -> %s", at, got)
	}
	if got := eng.Snapshot().Phase; got != domain.PhasePaused {
		t.Fatalf("phase = %s, want paused", got)
	}

	// Resuming continues from the stored value without a new countdown.
	obs.mu.Lock()
	countdownsBefore := len(obs.countdowns)
	obs.mu.Unlock()

	eng.Start()
	waitFor(t, "completion after resume", func() bool { return obs.completions() == 1 })

	obs.mu.Lock()
	countdownsAfter := len(obs.countdowns)
	obs.mu.Unlock()
	if countdownsAfter != countdownsBefore {
		t.Fatalf("resume must not restart the countdown (%d new events)", countdownsAfter-countdownsBefore)
	}
}

func TestStartWhileRunningIsNoOp(t *testing.T) {
	eng, obs, _ := setupEngine(t, WithTickInterval(20*time.Millisecond))
	eng.SetMethod(testMethod())

	eng.Start()
	waitFor(t, "running", func() bool {
		return eng.Snapshot().Phase == domain.PhaseRunning
	})
	eng.Start()

	waitFor(t, "completion", func() bool { return obs.completions() == 1 })
	obs.mu.Lock()
	trues := 0
	for _, r := range obs.running {
		if r {
			trues++
		}
	}
	obs.mu.Unlock()
	if trues != 1 {
		t.Fatalf("RunningChanged(true) fired %d times, want 1", trues)
	}
}

func TestSkipDuringFinalWait(t *testing.T) {
	eng, obs, _ := setupEngine(t, WithTickInterval(20*time.Millisecond))
	eng.SetMethod(testMethod())

	// Skip before starting is rejected.
	if err := eng.Skip(); err != domain.ErrNotRunning {
		t.Fatalf("skip while idle: %v, want ErrNotRunning", err)
	}

	eng.Start()

	// Freeze inside the first pour; skip must be unavailable there.
	waitFor(t, "first pour underway", func() bool {
		return eng.Snapshot().Elapsed >= secs(1)
	})
	eng.Pause()
	if err := eng.Skip(); err != domain.ErrSkipUnavailable {
		t.Fatalf("skip outside final wait: %v, want ErrSkipUnavailable", err)
	}

	// Run on into the final wait and skip out of it.
	eng.Start()
	waitFor(t, "final wait", func() bool {
		snap := eng.Snapshot()
		return snap.Waiting && snap.StageIndex == 3
	})
	eng.Pause()
	if err := eng.Skip(); err != nil {
		t.Fatalf("skip during final wait: %v", err)
	}

	if got := obs.completions(); got != 1 {
		t.Fatalf("completion fired %d times after skip, want 1", got)
	}
	note := obs.lastNote()
	if !note.Skipped {
		t.Fatal("skip completion must be tagged skipped")
	}
	if note.TotalTime != secs(9) {
		t.Fatalf("skipped total = %s, want the timeline end 9s", note.TotalTime)
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	eng, obs, _ := setupEngine(t, WithTickInterval(20*time.Millisecond))
	eng.SetMethod(testMethod())

	eng.Start()
	waitFor(t, "running", func() bool {
		return eng.Snapshot().Phase == domain.PhaseRunning
	})

	eng.Reset()

	snap := eng.Snapshot()
	if snap.Phase != domain.PhaseIdle {
		t.Fatalf("phase = %s, want idle", snap.Phase)
	}
	if snap.Elapsed != 0 {
		t.Fatalf("elapsed = %s, want 0", snap.Elapsed)
	}

	obs.mu.Lock()
	resets := obs.resets
	obs.mu.Unlock()
	if resets == 0 {
		t.Fatal("expected a SessionReset event")
	}

	// A fresh start works after reset.
	eng.Start()
	waitFor(t, "completion after reset", func() bool { return obs.completions() == 1 })
}

func TestSetMethodMidSessionResetsFirst(t *testing.T) {
	eng, obs, _ := setupEngine(t, WithTickInterval(20*time.Millisecond))
	eng.SetMethod(testMethod())

	eng.Start()
	waitFor(t, "running", func() bool {
		return eng.Snapshot().Phase == domain.PhaseRunning
	})

	eng.SetMethod(testMethod())

	snap := eng.Snapshot()
	if snap.Phase != domain.PhaseIdle {
		t.Fatalf("phase after mid-session reload = %s, want idle", snap.Phase)
	}
	obs.mu.Lock()
	resets := obs.resets
	schedules := obs.schedules
	obs.mu.Unlock()
	if resets == 0 {
		t.Fatal("expected the reload to reset the session")
	}
	if schedules != 2 {
		t.Fatalf("expected 2 schedule events, got %d", schedules)
	}
}

func TestSnapshotDerivedValues(t *testing.T) {
	eng, _, _ := setupEngine(t)
	eng.SetMethod(testMethod())

	snap := eng.Snapshot()
	if snap.Total != secs(9) {
		t.Fatalf("total = %s, want 9s", snap.Total)
	}
	if snap.StageIndex != 0 {
		// elapsed 0 sits in the first pour
		t.Fatalf("stage index = %d, want 0", snap.StageIndex)
	}
	if snap.WaterTarget != 30 {
		t.Fatalf("water target = %v, want 30", snap.WaterTarget)
	}
	if snap.FlowRate != 30 {
		// 30g over the 1-second bloom pour
		t.Fatalf("flow rate = %v, want 30", snap.FlowRate)
	}
}

func TestSyncBrewed(t *testing.T) {
	eng, obs, _ := setupEngine(t)
	eng.SetMethod(testMethod())

	eng.SyncBrewed()
	if got := eng.Snapshot().Phase; got != domain.PhaseCompleted {
		t.Fatalf("phase = %s, want completed", got)
	}
	if got := obs.completions(); got != 0 {
		t.Fatalf("sync must not fire completion, got %d", got)
	}

	// Starting from the synced state resets first and runs normally.
	eng.Start()
	waitFor(t, "completion", func() bool { return obs.completions() == 1 })
}
