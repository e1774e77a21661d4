package brew

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chu3/brewpilot/internal/logger"
)

// collectingNotifier captures messages for assertions.
type collectingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *collectingNotifier) Notify(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *collectingNotifier) NotifyUrgent(_ context.Context, msg string) error {
	return n.Notify(context.Background(), msg)
}

func (n *collectingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func TestMinderNudgesLongPause(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	notifier := &collectingNotifier{}
	eng, _, _ := setupEngine(t, WithTickInterval(20*time.Millisecond))
	eng.SetMethod(testMethod())

	eng.Start()
	waitFor(t, "some elapsed time", func() bool {
		return eng.Snapshot().Elapsed >= secs(1)
	})
	eng.Pause()

	minder := NewMinder(eng, notifier, log,
		WithMindInterval(10*time.Millisecond),
		WithPauseNudgeAfter(30*time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go minder.Run(ctx)

	waitFor(t, "pause nudge", func() bool { return notifier.count() > 0 })
}

func TestMinderQuietWhileRunning(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	notifier := &collectingNotifier{}
	eng, _, _ := setupEngine(t, WithTickInterval(20*time.Millisecond))
	eng.SetMethod(testMethod())
	eng.Start()

	minder := NewMinder(eng, notifier, log,
		WithMindInterval(5*time.Millisecond),
		WithPauseNudgeAfter(10*time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go minder.Run(ctx)

	time.Sleep(60 * time.Millisecond)
	if got := notifier.count(); got != 0 {
		t.Fatalf("minder spoke %d times during an active session, want silence", got)
	}
}
