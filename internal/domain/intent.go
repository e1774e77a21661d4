package domain

// IntentType classifies what the user wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentListMethods
	IntentSelectMethod
	IntentStart
	IntentPause
	IntentResume
	IntentSkip
	IntentReset
	IntentStatus
	IntentNotes
	IntentRate
	IntentSoundOn
	IntentSoundOff
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentListMethods:
		return "list_methods"
	case IntentSelectMethod:
		return "select_method"
	case IntentStart:
		return "start"
	case IntentPause:
		return "pause"
	case IntentResume:
		return "resume"
	case IntentSkip:
		return "skip"
	case IntentReset:
		return "reset"
	case IntentStatus:
		return "status"
	case IntentNotes:
		return "notes"
	case IntentRate:
		return "rate"
	case IntentSoundOn:
		return "sound_on"
	case IntentSoundOff:
		return "sound_off"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string // optional context, e.g. method number for select
}
