package cue

import (
	"os"

	"github.com/chu3/brewpilot/internal/domain"
)

var (
	_ domain.Haptics = (*NoopHaptics)(nil)
	_ domain.Haptics = (*TerminalHaptics)(nil)
)

// NoopHaptics is the stand-in for hosts with no vibration capability.
type NoopHaptics struct{}

func NewNoopHaptics() *NoopHaptics { return &NoopHaptics{} }

func (h *NoopHaptics) Available() bool               { return false }
func (h *NoopHaptics) Pulse(_ domain.HapticStrength) {}

// TerminalHaptics rings the terminal bell as the closest thing a CLI
// has to a vibration motor. Strength maps to repetition.
type TerminalHaptics struct{}

func NewTerminalHaptics() *TerminalHaptics { return &TerminalHaptics{} }

func (h *TerminalHaptics) Available() bool { return true }

func (h *TerminalHaptics) Pulse(strength domain.HapticStrength) {
	n := 1
	switch strength {
	case domain.HapticMedium:
		n = 2
	case domain.HapticStrong:
		n = 3
	}
	for i := 0; i < n; i++ {
		os.Stdout.Write([]byte{0x07})
	}
}
