package cue

import (
	"sync"
	"time"

	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
)

// Compile-time interface check.
var _ domain.CueSink = (*Sink)(nil)

// minGap is the minimum real-time spacing between two firings of the
// same cue type. The dispatcher is edge-triggered, which is the actual
// correctness mechanism; this gate only absorbs pathological re-entrant
// tick storms.
const minGap = 300 * time.Millisecond

// Sink routes cues to the tone player and the haptic capability,
// honoring the user's sound/haptic toggles. A nil player means no
// audio device; the sink stays silent without complaint.
type Sink struct {
	player  *Player // nil when audio is unavailable
	haptics domain.Haptics
	log     *logger.Logger

	mu         sync.Mutex
	sound      bool
	vibrate    bool
	lastPlayed map[domain.Cue]time.Time
	tones      map[domain.Cue][]byte
}

// NewSink creates a cue sink. Either capability may be nil.
func NewSink(player *Player, haptics domain.Haptics, log *logger.Logger) *Sink {
	s := &Sink{
		player:     player,
		haptics:    haptics,
		log:        log,
		sound:      true,
		vibrate:    true,
		lastPlayed: make(map[domain.Cue]time.Time),
		tones:      make(map[domain.Cue][]byte),
	}
	// Render all tones up front so a tick never pays synthesis cost.
	for _, c := range []domain.Cue{
		domain.CueStageStart, domain.CuePreEnd, domain.CuePourPreEnd,
		domain.CuePourEnd, domain.CueComplete,
	} {
		s.tones[c] = synthesize(toneFor(c))
	}
	return s
}

// SetSound toggles audio cues at runtime.
func (s *Sink) SetSound(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sound = on
}

// SetHaptics toggles haptic pulses at runtime.
func (s *Sink) SetHaptics(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vibrate = on
}

// Play fires the audio tone and haptic pulse for a cue. Fire-and-
// forget; never blocks the tick loop beyond the debounce check.
func (s *Sink) Play(cue domain.Cue) {
	s.mu.Lock()
	now := time.Now()
	if last, ok := s.lastPlayed[cue]; ok && now.Sub(last) < minGap {
		s.mu.Unlock()
		s.log.Debug("cue %s suppressed by debounce gate", cue)
		return
	}
	s.lastPlayed[cue] = now
	sound := s.sound
	vibrate := s.vibrate
	pcm := s.tones[cue]
	s.mu.Unlock()

	if sound && s.player != nil {
		s.player.Play(pcm)
	}
	if vibrate && s.haptics != nil && s.haptics.Available() {
		s.haptics.Pulse(strengthFor(cue))
	}
}

// strengthFor grades the pulse by how much the cue matters.
func strengthFor(cue domain.Cue) domain.HapticStrength {
	switch cue {
	case domain.CueComplete:
		return domain.HapticStrong
	case domain.CuePourEnd:
		return domain.HapticMedium
	default:
		return domain.HapticLight
	}
}
