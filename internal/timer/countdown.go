// Package timer implements the single-countdown timer used while cooking a
// step, and the auto-start policy that derives a duration from a step.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
	"github.com/hammamikhairi/guidedcook/internal/metrics"
)

// Option configures the countdown.
type Option func(*Countdown)

// WithTickInterval sets how often the countdown decrements. Each tick is
// one second of remaining time; shorter intervals speed it up in tests.
func WithTickInterval(d time.Duration) Option {
	return func(c *Countdown) {
		c.tickInterval = d
	}
}

// WithSecondPulseDelay sets how long after completion the lighter
// confirmation pulse fires when the user has not reacted.
func WithSecondPulseDelay(d time.Duration) Option {
	return func(c *Countdown) {
		c.secondPulseDelay = d
	}
}

// WithOnComplete registers a callback run once per completed countdown.
func WithOnComplete(fn func(source domain.TimerSource)) Option {
	return func(c *Countdown) {
		c.onComplete = fn
	}
}

// WithRecorder counts starts and completions.
func WithRecorder(r *metrics.Recorder) Option {
	return func(c *Countdown) {
		c.metrics = r
	}
}

// Countdown owns at most one running countdown. Starting a new one
// discards the previous one. Every callback the countdown schedules
// carries the generation it was started under and is dropped when the
// generation has moved on.
type Countdown struct {
	alerter          domain.Alerter
	notifier         domain.Notifier
	log              *logger.Logger
	metrics          *metrics.Recorder
	tickInterval     time.Duration
	secondPulseDelay time.Duration
	onComplete       func(source domain.TimerSource)

	mu     sync.Mutex
	state  domain.TimerState
	gen    uint64
	cancel context.CancelFunc
	pulse  *time.Timer
	closed bool

	ctx    context.Context
	stopFn context.CancelFunc
}

// New creates an idle countdown with the given dependencies and options.
func New(alerter domain.Alerter, notifier domain.Notifier, log *logger.Logger, opts ...Option) *Countdown {
	ctx, stop := context.WithCancel(context.Background())
	c := &Countdown{
		alerter:          alerter,
		notifier:         notifier,
		log:              log,
		tickInterval:     1 * time.Second,
		secondPulseDelay: 3 * time.Second,
		ctx:              ctx,
		stopFn:           stop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a countdown of the given minutes, replacing any current one.
func (c *Countdown) Start(minutes int, source domain.TimerSource) error {
	if minutes <= 0 {
		return domain.ErrInvalidDuration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrTimerClosed
	}

	c.invalidateLocked()
	c.state = domain.TimerState{
		RemainingSeconds: minutes * 60,
		Running:          true,
		Source:           source,
	}

	runCtx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	go c.loop(runCtx, c.gen)

	c.metrics.TimerStarted(source.String())
	c.log.Debug("countdown started: %dm (source=%s, gen=%d)", minutes, source, c.gen)
	return nil
}

// Stop halts the countdown and keeps the remaining time.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLocked()
	c.state.Running = false
	c.log.Debug("countdown stopped at %ds", c.state.RemainingSeconds)
}

// Reset halts the countdown and clears the remaining time.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLocked()
	c.state = domain.TimerState{}
}

// Acknowledge records that the user reacted to a completed countdown so
// the follow-up pulse is not sent.
func (c *Countdown) Acknowledge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPulseLocked()
}

// State returns a copy of the current timer state.
func (c *Countdown) State() domain.TimerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close tears the countdown down for good. Safe to call more than once.
func (c *Countdown) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.invalidateLocked()
	c.state = domain.TimerState{}
	c.closed = true
	c.stopFn()
}

// invalidateLocked bumps the generation and cancels everything scheduled
// under the old one.
func (c *Countdown) invalidateLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.stopPulseLocked()
}

func (c *Countdown) stopPulseLocked() {
	if c.pulse != nil {
		c.pulse.Stop()
		c.pulse = nil
	}
}

// loop is the tick loop for one generation.
func (c *Countdown) loop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.tick(gen) {
				return
			}
		}
	}
}

// tick removes one second. It returns false once the generation is stale
// or the countdown finished.
func (c *Countdown) tick(gen uint64) bool {
	c.mu.Lock()
	if c.gen != gen || !c.state.Running {
		c.mu.Unlock()
		return false
	}

	if c.state.RemainingSeconds > 0 {
		c.state.RemainingSeconds--
	}
	if c.state.RemainingSeconds > 0 {
		c.mu.Unlock()
		return true
	}

	c.state.Running = false
	source := c.state.Source
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.pulse = time.AfterFunc(c.secondPulseDelay, func() { c.secondPulse(gen) })
	c.mu.Unlock()

	c.complete(source)
	return false
}

// complete raises the one-shot completion event.
func (c *Countdown) complete(source domain.TimerSource) {
	c.log.Info("countdown finished (source=%s)", source)
	c.metrics.TimerCompleted()

	go c.firePulse(domain.PulseStrong)

	if c.notifier != nil {
		n := domain.Notice{Kind: domain.NoticeSuccess, Title: "Timer", Message: "Time's up."}
		if err := c.notifier.Notify(c.ctx, n); err != nil {
			c.log.Error("countdown: notify: %v", err)
		}
	}
	if c.onComplete != nil {
		c.onComplete(source)
	}
}

func (c *Countdown) secondPulse(gen uint64) {
	c.mu.Lock()
	live := c.gen == gen && c.pulse != nil
	if live {
		c.pulse = nil
	}
	c.mu.Unlock()

	if live {
		c.firePulse(domain.PulseLight)
	}
}

func (c *Countdown) firePulse(p domain.Pulse) {
	if c.alerter == nil {
		return
	}
	if err := c.alerter.Pulse(c.ctx, p); err != nil {
		c.log.Warn("countdown: %s pulse: %v", p, err)
	}
}

// FormatRemaining renders seconds as "m:ss".
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
