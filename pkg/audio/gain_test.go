package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummyStreamer struct {
	samples [][2]float64
	pos     int
}

func (s *dummyStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n = copy(samples, s.samples[s.pos:])
	s.pos += n
	return n, true
}

func (s *dummyStreamer) Err() error { return nil }

func ones(n int) *dummyStreamer {
	in := make([][2]float64, n)
	for i := range in {
		in[i] = [2]float64{1, 1}
	}
	return &dummyStreamer{samples: in}
}

func TestGainRamp(t *testing.T) {
	const sr = beep.SampleRate(1000)
	g := NewGain(ones(200), 0)
	g.SetTarget(1, sr, 100*time.Millisecond) // 100 samples

	out := make([][2]float64, 200)
	n, ok := g.Stream(out)
	require.True(t, ok)
	require.Equal(t, 200, n)

	assert.InDelta(t, 0.01, out[0][0], 1e-9)
	assert.InDelta(t, 0.5, out[49][0], 1e-9)
	assert.InDelta(t, 1.0, out[99][0], 1e-9)
	assert.Equal(t, 1.0, out[199][1])
	for i := 1; i < n; i++ {
		assert.GreaterOrEqual(t, out[i][0], out[i-1][0])
	}
}

func TestGainInstant(t *testing.T) {
	g := NewGain(ones(10), 1)
	g.SetTarget(0.25, beep.SampleRate(48000), 0)
	out := make([][2]float64, 10)
	g.Stream(out)
	assert.Equal(t, 0.25, out[0][0])
	assert.Equal(t, 0.25, g.Target())
}

func TestLoopPlayerDecodeErrors(t *testing.T) {
	_, err := NewLoopPlayer(filepath.Join(t.TempDir(), "missing.mp3"), 0)
	assert.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(bogus, []byte("not a wav"), 0o644))
	_, err = NewLoopPlayer(bogus, 0)
	assert.Error(t, err)
}
