package cue

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/chu3/brewpilot/internal/domain"
)

// note describes one segment of a synthesized tone.
type note struct {
	freq     float64 // Hz
	duration time.Duration
}

// toneFor maps each cue to its tone shape. The shapes are deliberately
// distinct at a glance-away distance: short blips for warnings, a
// falling third for pour end, a rising arpeggio for completion.
func toneFor(cue domain.Cue) []note {
	switch cue {
	case domain.CueStageStart:
		return []note{{880, 150 * time.Millisecond}}
	case domain.CuePreEnd:
		return []note{{660, 90 * time.Millisecond}}
	case domain.CuePourPreEnd:
		return []note{{740, 90 * time.Millisecond}}
	case domain.CuePourEnd:
		return []note{{784, 120 * time.Millisecond}, {659, 180 * time.Millisecond}}
	case domain.CueComplete:
		return []note{
			{523, 140 * time.Millisecond},
			{659, 140 * time.Millisecond},
			{784, 260 * time.Millisecond},
		}
	default:
		return nil
	}
}

// synthesize renders a sequence of notes to 16-bit little-endian mono
// PCM at SampleRate, with a short linear attack/release envelope on
// each note so the blips don't click.
func synthesize(notes []note) []byte {
	const amplitude = 0.35
	ramp := SampleRate / 100 // 10ms fade in/out

	var out []byte
	for _, n := range notes {
		samples := int(float64(SampleRate) * n.duration.Seconds())
		buf := make([]byte, samples*2)
		for i := 0; i < samples; i++ {
			v := amplitude * math.Sin(2*math.Pi*n.freq*float64(i)/SampleRate)
			if i < ramp {
				v *= float64(i) / float64(ramp)
			}
			if rem := samples - i; rem < ramp {
				v *= float64(rem) / float64(ramp)
			}
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*math.MaxInt16)))
		}
		out = append(out, buf...)
	}
	return out
}
