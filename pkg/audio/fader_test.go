package audio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeOutput struct {
	mu      sync.Mutex
	volume  float64
	playing bool
	history []float64
}

func (o *fakeOutput) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = true
	return nil
}

func (o *fakeOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = false
}

func (o *fakeOutput) SetVolume(v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = v
	o.history = append(o.history, v)
}

func (o *fakeOutput) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

func (o *fakeOutput) snapshot() (float64, bool, []float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume, o.playing, append([]float64(nil), o.history...)
}

func waitDone(t *testing.T, ch <-chan struct{}, within time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(within):
		t.Fatal("fade did not finish")
	}
}

func TestFadeOutThenPause(t *testing.T) {
	out := &fakeOutput{volume: 0.4, playing: true}
	f := NewFader(out, 5*time.Millisecond)
	defer f.Close()

	start := time.Now()
	waitDone(t, f.Fade(0, 400*time.Millisecond, true), 2*time.Second)
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)

	vol, playing, history := out.snapshot()
	assert.Equal(t, 0.0, vol)
	assert.False(t, playing)
	require.NotEmpty(t, history)
	for i := 1; i < len(history); i++ {
		assert.LessOrEqual(t, history[i], history[i-1], "fade out must be monotonic")
	}
}

func TestFadeInKeepsPlaying(t *testing.T) {
	out := &fakeOutput{volume: 0, playing: true}
	f := NewFader(out, 5*time.Millisecond)
	defer f.Close()

	waitDone(t, f.Fade(0.4, 60*time.Millisecond, false), time.Second)
	vol, playing, _ := out.snapshot()
	assert.Equal(t, 0.4, vol)
	assert.True(t, playing)
}

func TestNewFadeCancelsPending(t *testing.T) {
	out := &fakeOutput{volume: 0.4, playing: true}
	f := NewFader(out, 5*time.Millisecond)
	defer f.Close()

	first := f.Fade(0, 500*time.Millisecond, true)
	time.Sleep(30 * time.Millisecond)
	second := f.Fade(0.8, 50*time.Millisecond, false)

	waitDone(t, first, time.Second)
	waitDone(t, second, time.Second)
	time.Sleep(30 * time.Millisecond)

	vol, playing, _ := out.snapshot()
	assert.Equal(t, 0.8, vol)
	assert.True(t, playing, "cancelled fade must not pause")
}

func TestZeroDurationIsImmediate(t *testing.T) {
	out := &fakeOutput{volume: 0.2, playing: true}
	f := NewFader(out, 0)
	defer f.Close()

	done := f.Fade(1.5, 0, true)
	select {
	case <-done:
	default:
		t.Fatal("zero-duration fade should complete synchronously")
	}
	vol, playing, _ := out.snapshot()
	assert.Equal(t, 1.0, vol, "target is clamped")
	assert.False(t, playing)
}

func TestCloseStopsFade(t *testing.T) {
	out := &fakeOutput{volume: 1, playing: true}
	f := NewFader(out, 5*time.Millisecond)

	done := f.Fade(0, time.Hour, true)
	f.Close()
	waitDone(t, done, time.Second)

	_, playing, _ := out.snapshot()
	assert.True(t, playing)

	after := f.Fade(0, 10*time.Millisecond, false)
	waitDone(t, after, time.Second)
	vol, _, _ := out.snapshot()
	assert.NotEqual(t, 0.0, vol, "fades after Close are no-ops")
}
