// Package conversation turns typed input into session commands and prints
// notices to the terminal.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

// KeywordParser matches user input to commands using keywords and simple
// patterns.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex   *regexp.Regexp
	command domain.CommandType
}

// NewKeywordParser creates a keyword-based command parser. Rules with a
// capture group carry the first group as payload.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(?:check|c|tick|x)?\s*(\d+)$`), domain.CommandCheck},
		{regexp.MustCompile(`(?i)^(?:start|cook|go|begin|let'?s go)$`), domain.CommandStartCooking},
		{regexp.MustCompile(`(?i)^(?:next|n|done|continue|finish)$`), domain.CommandNext},
		{regexp.MustCompile(`(?i)^(?:back|b|prev|previous)$`), domain.CommandBack},
		{regexp.MustCompile(`(?i)^(?:timer|t|set timer)\s+(\d+)\s*(?:m|min|minutes?)?$`), domain.CommandTimer},
		{regexp.MustCompile(`(?i)^(?:stop|pause|stop timer)$`), domain.CommandStopTimer},
		{regexp.MustCompile(`(?i)^(?:reset|reset timer|clear)$`), domain.CommandResetTimer},
		{regexp.MustCompile(`(?i)^(?:ok|dismiss|got it|acknowledged)$`), domain.CommandAcknowledge},
		{regexp.MustCompile(`(?i)^(?:rate|stars?)\s+(\d.*)$`), domain.CommandRate},
		{regexp.MustCompile(`(?i)^(?:decline|no|later|no thanks)$`), domain.CommandDecline},
		{regexp.MustCompile(`(?i)^(?:photo|picture|pic)\s+(.+)$`), domain.CommandPhoto},
		{regexp.MustCompile(`(?i)^(?:skip|s)$`), domain.CommandSkip},
		{regexp.MustCompile(`(?i)^(?:retry|again|try again)$`), domain.CommandRetry},
		{regexp.MustCompile(`(?i)^(?:change|change photo|other photo)$`), domain.CommandChangePhoto},
		{regexp.MustCompile(`(?i)^(?:status|where|progress|info)$`), domain.CommandStatus},
		{regexp.MustCompile(`(?i)^(?:help|h|\?)$`), domain.CommandHelp},
		{regexp.MustCompile(`(?i)^(?:quit|exit|q|leave)$`), domain.CommandQuit},
	}
	return p
}

// Parse converts user input into a command.
func (p *KeywordParser) Parse(ctx context.Context, input string) (domain.Command, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return domain.Command{Type: domain.CommandUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		p.log.Debug("matched command: %s", rule.command)
		cmd := domain.Command{Type: rule.command}
		if len(m) > 1 {
			cmd.Payload = strings.TrimSpace(m[1])
		}
		return cmd, nil
	}

	p.log.Debug("no match, returning unknown command")
	return domain.Command{Type: domain.CommandUnknown, Payload: trimmed}, nil
}

// HelpText lists the commands the parser understands.
const HelpText = `Commands:
  check N         tick ingredient N (or just N)
  start           start cooking once everything is checked
  next / back     move between steps; next on the last step finishes
  timer N         start an N minute timer
  stop / reset    pause or clear the timer
  ok              acknowledge a finished timer
  rate N [text]   rate the recipe 1-5 with an optional comment
  decline         skip rating for now
  photo PATH      upload a photo of your dish
  skip            finish without a photo
  retry / change  retry a failed upload or pick another photo
  status          show where you are
  quit            leave the session`
