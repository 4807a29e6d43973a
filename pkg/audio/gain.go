package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep/v2"
)

// Gain is a streamer that multiplies samples by a gain and slides towards a
// new target sample by sample, so stepwise volume changes do not click.
//
// Gain is not synchronized. With the speaker package every method except the
// constructor must be called while holding speaker.Lock(), because the speaker
// goroutine calls Stream under that lock.
type Gain struct {
	Streamer beep.Streamer

	target  float64
	current float64
	step    float64
}

// NewGain wraps s at the given initial gain.
func NewGain(s beep.Streamer, initial float64) *Gain {
	initial = Clamp01(initial)
	return &Gain{Streamer: s, target: initial, current: initial}
}

// Stream applies the gain while moving it towards the target.
func (g *Gain) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = g.Streamer.Stream(samples)
	for i := 0; i < n; i++ {
		if g.current != g.target {
			switch {
			case g.step == 0:
				g.current = g.target
			case g.current < g.target:
				g.current = math.Min(g.current+g.step, g.target)
			default:
				g.current = math.Max(g.current-g.step, g.target)
			}
		}
		samples[i][0] *= g.current
		samples[i][1] *= g.current
	}
	return n, ok
}

func (g *Gain) Err() error {
	return g.Streamer.Err()
}

// SetTarget sets the gain to reach over the given window.
func (g *Gain) SetTarget(v float64, sr beep.SampleRate, window time.Duration) {
	g.target = Clamp01(v)
	if window <= 0 {
		g.step = 0
		return
	}
	diff := math.Abs(g.target - g.current)
	if diff == 0 {
		g.step = 0
		return
	}
	g.step = diff / float64(sr.N(window))
}

// Target returns the gain being moved towards.
func (g *Gain) Target() float64 { return g.target }
