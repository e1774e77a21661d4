// Package conversation provides intent parsing and user notification implementations.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches user input to intents using keywords and simple patterns.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// NewKeywordParser creates a keyword-based intent parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(list|methods|show|browse)$`), domain.IntentListMethods},
		{regexp.MustCompile(`(?i)^(start|brew|go|begin|let'?s go)$`), domain.IntentStart},
		{regexp.MustCompile(`(?i)^(pause|hold|wait|p)$`), domain.IntentPause},
		{regexp.MustCompile(`(?i)^(resume|back|continue|unpause)$`), domain.IntentResume},
		{regexp.MustCompile(`(?i)^(skip|finish|s)$`), domain.IntentSkip},
		{regexp.MustCompile(`(?i)^(reset|abort|restart)$`), domain.IntentReset},
		{regexp.MustCompile(`(?i)^(status|where|progress|info)$`), domain.IntentStatus},
		{regexp.MustCompile(`(?i)^(notes|history|brews|log)$`), domain.IntentNotes},
		{regexp.MustCompile(`(?i)^(sound on|unmute)$`), domain.IntentSoundOn},
		{regexp.MustCompile(`(?i)^(sound off|mute|silence)$`), domain.IntentSoundOff},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.IntentHelp},
		{regexp.MustCompile(`(?i)^(quit|exit|stop|q)$`), domain.IntentQuit},
	}
	return p
}

// Parse converts user input into an intent.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	// Method selection by number (e.g., "1", "2", "3").
	if len(trimmed) <= 2 && isDigits(trimmed) {
		return &domain.Intent{Type: domain.IntentSelectMethod, Payload: trimmed}, nil
	}

	for _, rule := range p.patterns {
		if rule.regex.MatchString(trimmed) {
			p.log.Debug("matched intent: %s", rule.intent)
			return &domain.Intent{Type: rule.intent}, nil
		}
	}

	lower := strings.ToLower(trimmed)

	// "select kasuya" / "pick 2" / "use v60".
	for _, kw := range []string{"select ", "pick ", "use ", "method "} {
		if strings.HasPrefix(lower, kw) {
			return &domain.Intent{Type: domain.IntentSelectMethod, Payload: strings.TrimSpace(trimmed[len(kw):])}, nil
		}
	}

	// "rate 4" / "rate 4 bright and sweet". The payload keeps everything
	// after the keyword; the app splits score from comment.
	if strings.HasPrefix(lower, "rate ") || lower == "rate" {
		return &domain.Intent{Type: domain.IntentRate, Payload: strings.TrimSpace(trimmed[4:])}, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
