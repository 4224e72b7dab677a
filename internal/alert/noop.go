package alert

import (
	"context"
	"io"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Alerter = (*NoOp)(nil)
	_ domain.Alerter = (*Bell)(nil)
)

// NoOp is an alerter that does nothing. Used when sound is disabled.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a silent alerter.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Pulse only logs.
func (n *NoOp) Pulse(ctx context.Context, p domain.Pulse) error {
	n.log.Debug("alert no-op: would fire %s pulse", p)
	return nil
}

// Bell rings the terminal bell. It is the fallback when no audio device
// is available.
type Bell struct {
	w io.Writer
}

// NewBell creates a bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Pulse writes one bell for a light pulse and two for a strong one.
func (b *Bell) Pulse(ctx context.Context, p domain.Pulse) error {
	seq := "\a"
	if p == domain.PulseStrong {
		seq = "\a\a"
	}
	_, err := io.WriteString(b.w, seq)
	return err
}
