package brew

import (
	"context"
	"fmt"
	"time"

	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
)

// MinderOption configures the minder.
type MinderOption func(*Minder)

// WithMindInterval sets how often the minder inspects the session.
func WithMindInterval(d time.Duration) MinderOption {
	return func(m *Minder) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithPauseNudgeAfter sets how long a session may sit paused before
// the minder speaks up.
func WithPauseNudgeAfter(d time.Duration) MinderOption {
	return func(m *Minder) {
		if d > 0 {
			m.nudgeAfter = d
		}
	}
}

// Minder periodically inspects the session and nudges the user when a
// brew has been paused long enough to degrade — grounds over-extract
// while the water sits. It runs on a slower cycle than the clock and
// stays quiet otherwise.
type Minder struct {
	engine     *Engine
	notifier   domain.Notifier
	log        *logger.Logger
	interval   time.Duration
	nudgeAfter time.Duration
	lastNudge  time.Time
}

// NewMinder creates a minder watching the given engine.
func NewMinder(engine *Engine, notifier domain.Notifier, log *logger.Logger, opts ...MinderOption) *Minder {
	m := &Minder{
		engine:     engine,
		notifier:   notifier,
		log:        log,
		interval:   15 * time.Second,
		nudgeAfter: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the minder loop. Blocks until ctx is cancelled; intended
// to be called as a goroutine.
func (m *Minder) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("minder started (interval=%s, nudge after %s)", m.interval, m.nudgeAfter)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("minder stopped")
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// check runs one inspection cycle.
func (m *Minder) check(ctx context.Context) {
	snap := m.engine.Snapshot()

	if snap.Phase != domain.PhasePaused {
		m.lastNudge = time.Time{}
		return
	}

	m.log.Debug("minder: paused for %s (elapsed=%s)", snap.PausedFor.Round(time.Second), snap.Elapsed)

	if snap.PausedFor < m.nudgeAfter {
		return
	}
	// One nudge per interval window, not per check.
	if !m.lastNudge.IsZero() && time.Since(m.lastNudge) < m.nudgeAfter {
		return
	}
	m.lastNudge = time.Now()

	msg := fmt.Sprintf("[Minder] Paused for %s — the grounds are still steeping.", snap.PausedFor.Round(time.Second))
	if err := m.notifier.Notify(ctx, msg); err != nil {
		m.log.Error("minder: notify: %v", err)
	}
}
