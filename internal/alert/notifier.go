package alert

import (
	"context"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*PulsingNotifier)(nil)

// PulsingNotifier wraps a text notifier and fires a light pulse for error
// notices so failures are heard as well as seen.
type PulsingNotifier struct {
	text    domain.Notifier
	alerter domain.Alerter
	log     *logger.Logger
}

// NewPulsingNotifier creates a notifier that prints and, for errors, beeps.
func NewPulsingNotifier(text domain.Notifier, alerter domain.Alerter, log *logger.Logger) *PulsingNotifier {
	return &PulsingNotifier{text: text, alerter: alerter, log: log}
}

// Notify prints the notice and pulses on errors.
func (n *PulsingNotifier) Notify(ctx context.Context, notice domain.Notice) error {
	if err := n.text.Notify(ctx, notice); err != nil {
		return err
	}
	if notice.Kind != domain.NoticeError {
		return nil
	}
	if err := n.alerter.Pulse(ctx, domain.PulseLight); err != nil {
		n.log.Warn("error pulse: %v", err)
	}
	return nil
}
