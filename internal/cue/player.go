// Package cue turns timeline events into short audio tones and haptic
// pulses. Playback is fire-and-forget: a platform without a usable
// audio device degrades to silence, never to an error the session
// sees.
package cue

import (
	"bytes"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/chu3/brewpilot/internal/logger"
)

// Audio parameters for synthesized tones.
const (
	SampleRate   = 24000
	ChannelCount = 1
)

// Player owns the system audio context and plays pre-synthesized PCM
// buffers via oto.
type Player struct {
	ctx *oto.Context
	log *logger.Logger

	mu     sync.Mutex
	active *oto.Player // most recent player, nil when idle
}

// NewPlayer initializes the system audio context. Returns an error if
// the audio device is unavailable; callers treat that as "no sound",
// not a failure.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("cue player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play starts playback of a PCM buffer and returns immediately. A tone
// already playing keeps playing; cues are short enough to overlap
// without harm.
func (p *Player) Play(pcm []byte) {
	if len(pcm) == 0 {
		return
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	player.Play()
	p.log.Debug("cue player: playing %d bytes of PCM", len(pcm))

	go func() {
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		p.mu.Lock()
		if p.active == player {
			p.active = nil
		}
		p.mu.Unlock()
		player.Close()
	}()
}

// Stop interrupts the most recent tone, if it is still playing. Safe
// to call concurrently and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("cue player: interrupted")
	}
}
