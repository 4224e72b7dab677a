package alert

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/hammamikhairi/guidedcook/internal/domain"
)

type beep struct {
	freq  float64
	dur   time.Duration
	pause time.Duration
}

// patterns describe each pulse as a run of beeps.
var patterns = map[domain.Pulse][]beep{
	domain.PulseStrong: {
		{freq: 880, dur: 180 * time.Millisecond, pause: 90 * time.Millisecond},
		{freq: 880, dur: 180 * time.Millisecond, pause: 90 * time.Millisecond},
		{freq: 1175, dur: 320 * time.Millisecond},
	},
	domain.PulseLight: {
		{freq: 660, dur: 140 * time.Millisecond},
	},
}

// Pattern renders the tone for p as 16-bit little-endian mono PCM.
func Pattern(p domain.Pulse) []byte {
	var pcm []byte
	for _, b := range patterns[p] {
		pcm = append(pcm, sine(b.freq, b.dur, 0.4)...)
		pcm = append(pcm, silence(b.pause)...)
	}
	return pcm
}

func samples(d time.Duration) int {
	return int(int64(d) * SampleRate / int64(time.Second))
}

// sine writes a tone with a short linear fade at both ends so it does not
// click.
func sine(freq float64, d time.Duration, volume float64) []byte {
	n := samples(d)
	fade := samples(5 * time.Millisecond)
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		amp := volume
		if i < fade {
			amp *= float64(i) / float64(fade)
		} else if n-i < fade {
			amp *= float64(n-i) / float64(fade)
		}
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*math.MaxInt16)))
	}
	return out
}

func silence(d time.Duration) []byte {
	return make([]byte, samples(d)*2)
}
