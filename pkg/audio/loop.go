package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

const targetSampleRate = beep.SampleRate(48000)

var (
	speakerOnce sync.Once
	speakerErr  error
)

var ErrPlayerClosed = errors.New("loop player closed")

// LoopPlayer plays a local track on the default sound device in an endless loop.
// It implements Output.
type LoopPlayer struct {
	mu      sync.Mutex
	path    string
	track   beep.StreamSeekCloser
	ctrl    *beep.Ctrl
	gain    *Gain
	rate    beep.SampleRate
	volume  float64
	started bool
	closed  bool
	window  time.Duration
}

// NewLoopPlayer decodes path (mp3 or wav) and prepares it paused at volume 0.
// The sound device is opened on first use.
func NewLoopPlayer(path string, window time.Duration) (*LoopPlayer, error) {
	track, format, err := decode(path)
	if err != nil {
		return nil, err
	}
	looped, err := beep.Loop2(track)
	if err != nil {
		track.Close()
		return nil, fmt.Errorf("failed to loop %s: %w", path, err)
	}

	resampled := beep.Resample(3, format.SampleRate, targetSampleRate, looped)
	gain := NewGain(resampled, 0)
	return &LoopPlayer{
		path:   path,
		track:  track,
		gain:   gain,
		ctrl:   &beep.Ctrl{Streamer: gain, Paused: true},
		rate:   targetSampleRate,
		window: window,
	}, nil
}

func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open audio file: %w", err)
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	if strings.HasSuffix(strings.ToLower(path), ".wav") {
		s, format, err = wav.Decode(f)
	} else {
		s, format, err = mp3.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return s, format, nil
}

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(targetSampleRate, targetSampleRate.N(time.Second/10))
		if speakerErr != nil {
			slog.Error("Failed to initialize speaker", "error", speakerErr)
		}
	})
	return speakerErr
}

// Play starts or resumes the loop.
func (p *LoopPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPlayerClosed
	}
	if !p.started {
		if err := initSpeaker(); err != nil {
			return err
		}
		speaker.Play(p.ctrl)
		p.started = true
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	slog.Debug("BGM playing", "path", p.path)
	return nil
}

// Pause pauses the loop, keeping its position.
func (p *LoopPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.closed {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
}

// SetVolume sets the linear volume. The gain slides to it over the smoothing window.
func (p *LoopPlayer) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = Clamp01(v)
	if !p.started {
		p.gain.SetTarget(p.volume, p.rate, 0)
		return
	}
	speaker.Lock()
	p.gain.SetTarget(p.volume, p.rate, p.window)
	speaker.Unlock()
}

func (p *LoopPlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Close stops playback and releases the file.
func (p *LoopPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.started {
		speaker.Lock()
		p.ctrl.Streamer = nil
		speaker.Unlock()
	}
	return p.track.Close()
}
