package audio

import (
	"sync"
	"time"
)

// DefaultFrame is the fade tick, roughly one display frame.
const DefaultFrame = 16 * time.Millisecond

// Fader ramps an Output's volume linearly. Only one fade runs at a time:
// starting a fade cancels the pending one, which leaves the volume wherever it got to.
type Fader struct {
	out   Output
	frame time.Duration

	mu     sync.Mutex
	cancel chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewFader creates a Fader. frame <= 0 uses DefaultFrame.
func NewFader(out Output, frame time.Duration) *Fader {
	if frame <= 0 {
		frame = DefaultFrame
	}
	return &Fader{out: out, frame: frame}
}

// Fade moves the volume from its current level to target over d. When the
// ramp completes the volume is exactly target and, if pauseAfter is set, the
// output is paused. The returned channel closes when the fade finishes or is
// cancelled.
func (f *Fader) Fade(target float64, d time.Duration, pauseAfter bool) <-chan struct{} {
	target = Clamp01(target)
	done := make(chan struct{})

	f.mu.Lock()
	f.stopLocked()
	if f.closed {
		f.mu.Unlock()
		close(done)
		return done
	}
	if d <= 0 {
		f.finish(target, pauseAfter)
		f.mu.Unlock()
		close(done)
		return done
	}
	cancel := make(chan struct{})
	f.cancel = cancel
	f.wg.Add(1)
	from := f.out.Volume()
	f.mu.Unlock()

	go f.run(from, target, d, pauseAfter, cancel, done)
	return done
}

func (f *Fader) run(from, target float64, d time.Duration, pauseAfter bool, cancel, done chan struct{}) {
	defer f.wg.Done()
	defer close(done)

	ticker := time.NewTicker(f.frame)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			p := float64(time.Since(start)) / float64(d)
			f.mu.Lock()
			// A newer fade may have replaced us between the tick and the lock.
			if f.cancel != cancel {
				f.mu.Unlock()
				return
			}
			if p >= 1 {
				f.cancel = nil
				f.finish(target, pauseAfter)
				f.mu.Unlock()
				return
			}
			f.out.SetVolume(from + (target-from)*p)
			f.mu.Unlock()
		}
	}
}

// finish runs with f.mu held.
func (f *Fader) finish(target float64, pauseAfter bool) {
	f.out.SetVolume(target)
	if pauseAfter {
		f.out.Pause()
	}
}

// Stop cancels the running fade, if any.
func (f *Fader) Stop() {
	f.mu.Lock()
	f.stopLocked()
	f.mu.Unlock()
}

func (f *Fader) stopLocked() {
	if f.cancel != nil {
		close(f.cancel)
		f.cancel = nil
	}
}

// Close cancels the running fade and waits for its goroutine to exit.
func (f *Fader) Close() {
	f.mu.Lock()
	f.closed = true
	f.stopLocked()
	f.mu.Unlock()
	f.wg.Wait()
}
