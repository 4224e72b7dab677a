package conversation

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// PrintFunc is a function used to print formatted output.
// Matches the signature of both fmt.Printf and display.UI.Printf.
type PrintFunc func(format string, a ...interface{})

// CLINotifier writes notices to the terminal, colored by kind.
type CLINotifier struct {
	log     *logger.Logger
	printFn PrintFunc
}

// NewCLINotifier creates a terminal notifier.
// If printFn is nil, fmt.Printf is used.
func NewCLINotifier(log *logger.Logger, printFn PrintFunc) *CLINotifier {
	if printFn == nil {
		printFn = func(format string, a ...interface{}) {
			fmt.Printf(format+"\n", a...)
		}
	}
	return &CLINotifier{log: log, printFn: printFn}
}

// Notify prints a notice.
func (n *CLINotifier) Notify(ctx context.Context, notice domain.Notice) error {
	n.log.Debug("notify %s: %s", notice.Kind, notice.Title)

	color := cyan
	switch notice.Kind {
	case domain.NoticeSuccess:
		color = green
	case domain.NoticeWarning:
		color = yellow
	case domain.NoticeError:
		color = red
	}

	if notice.Message == "" {
		n.printFn("%s%s%s%s", color, bold, notice.Title, reset)
		return nil
	}
	n.printFn("%s%s%s:%s %s", color, bold, notice.Title, reset, notice.Message)
	return nil
}
