// Package alert implements the audible pulses fired when a countdown ends.
package alert

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

// Compile-time interface check.
var _ domain.Alerter = (*Beeper)(nil)

// Audio parameters of the generated tones.
const (
	SampleRate   = 24000
	ChannelCount = 1
)

// Beeper plays short generated tones through the system audio device.
type Beeper struct {
	ctx    *oto.Context
	log    *logger.Logger
	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewBeeper initializes the system audio context. Returns an error if the
// audio device is unavailable.
func NewBeeper(log *logger.Logger) (*Beeper, error) {
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

	log.Debug("beeper initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Beeper{ctx: ctx, log: log}, nil
}

// Pulse starts the tone for p and returns at once. A pulse that arrives
// while another is playing replaces it.
func (b *Beeper) Pulse(ctx context.Context, p domain.Pulse) error {
	pcm := Pattern(p)
	player := b.ctx.NewPlayer(bytes.NewReader(pcm))

	b.mu.Lock()
	if b.active != nil {
		b.active.Pause()
	}
	b.active = player
	b.mu.Unlock()

	player.Play()
	b.log.Debug("beeper: %s pulse (%d bytes)", p, len(pcm))

	go b.wait(ctx, player)
	return nil
}

// wait releases the player once it has drained or ctx is done.
func (b *Beeper) wait(ctx context.Context, player *oto.Player) {
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
		case <-time.After(10 * time.Millisecond):
		}
	}

	b.mu.Lock()
	if b.active == player {
		b.active = nil
	}
	b.mu.Unlock()

	if err := player.Close(); err != nil {
		b.log.Warn("beeper: close player: %v", err)
	}
}

// Stop interrupts the tone that is playing, if any.
func (b *Beeper) Stop() {
	b.mu.Lock()
	active := b.active
	b.mu.Unlock()

	if active != nil {
		active.Pause()
		b.log.Debug("beeper: interrupted")
	}
}
