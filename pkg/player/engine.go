// Package player drives the dual-buffer slideshow: preloading the next clip,
// crossfading between buffers and fading background music in and out.
package player

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"tripreel/pkg/audio"
	"tripreel/pkg/config"
	"tripreel/pkg/logging"
	"tripreel/pkg/model"
)

// User-facing notices.
const (
	MsgClipNotFound = "Video file not found."
	MsgBGMMissing   = "BGM file is missing. Provide assets/audio/bgm.mp3 or an online source."
)

// Overlay text stays hidden this close to either end of a clip (seconds).
const textMargin = 0.4

// Options configures an Engine. Prefs and BGM may be nil.
type Options struct {
	Config    config.PlayerConfig
	Prefs     config.Provider
	BGM       audio.Output
	BGMSource string
}

// Listener receives a snapshot after every state change.
type Listener func(model.PlaybackState)

// Engine owns the playback state machine.
// All methods are safe for concurrent use. Media and audio commands are issued
// while the engine lock is held, so implementations must not block.
type Engine struct {
	mu     sync.Mutex
	cfg    config.PlayerConfig
	clips  []model.Clip
	media  [2]Media
	gen    [2]uint64
	loaded [2]int
	active int
	st     model.PlaybackState

	guard   bool // set once an advance is underway for the active clip
	pending int  // clip queued into the inactive buffer, -1 if none

	swapTimer *time.Timer
	swapSeq   uint64

	bgm   audio.Output
	fader *audio.Fader
	prefs config.Provider

	subs   map[int]Listener
	nextID int
	closed bool
}

// New builds an engine with clip 0 loading into buffer A and clip 1 preloading into B.
func New(clips []model.Clip, media [2]Media, opts Options) (*Engine, error) {
	if len(clips) == 0 {
		return nil, ErrNoClips
	}
	if media[0] == nil || media[1] == nil {
		return nil, errors.New("player needs two media buffers")
	}
	cfg := withDefaults(opts.Config)

	e := &Engine{
		cfg:     cfg,
		clips:   append([]model.Clip(nil), clips...),
		media:   media,
		loaded:  [2]int{-1, -1},
		pending: -1,
		bgm:     opts.BGM,
		prefs:   opts.Prefs,
		subs:    make(map[int]Listener),
	}
	e.st = model.PlaybackState{
		IsMuted:        cfg.StartMuted,
		BGMEnabled:     cfg.BGM.Enabled,
		Volume:         cfg.DefaultVolume,
		PlaybackRate:   cfg.DefaultRate,
		TransitionType: model.TransitionDefault,
		BGMSource:      opts.BGMSource,
	}
	if opts.Prefs != nil {
		ctx := context.Background()
		e.st.IsMuted = opts.Prefs.Muted(ctx)
		e.st.BGMEnabled = opts.Prefs.BGMEnabled(ctx)
		e.st.Volume = opts.Prefs.Volume(ctx)
		e.st.PlaybackRate = opts.Prefs.PlaybackRate(ctx)
	}
	e.st.Volume = audio.Clamp01(e.st.Volume)
	e.st.PlaybackRate = Clamp(e.st.PlaybackRate, cfg.MinRate, cfg.MaxRate)

	if e.bgm != nil {
		e.bgm.SetVolume(0)
		e.fader = audio.NewFader(e.bgm, time.Duration(cfg.FrameInterval))
	}

	e.mu.Lock()
	e.loadLocked(0, 0, func(err error) {
		if err != nil {
			slog.Warn("Initial clip failed to load", "clip", e.clips[0].ID, "error", err)
			e.st.ErrorMessage = MsgClipNotFound
		}
	})
	e.preloadLocked()
	e.mu.Unlock()

	slog.Info("Player ready", "clips", len(e.clips), "muted", e.st.IsMuted, "rate", e.st.PlaybackRate, "bgm", e.st.BGMEnabled)
	return e, nil
}

func withDefaults(cfg config.PlayerConfig) config.PlayerConfig {
	def := config.DefaultConfig().Player
	if cfg.Transition <= 0 {
		cfg.Transition = def.Transition
	}
	if cfg.MaxRate <= 0 || cfg.MinRate > cfg.MaxRate {
		cfg.MinRate, cfg.MaxRate = def.MinRate, def.MaxRate
	}
	if cfg.DefaultRate <= 0 {
		cfg.DefaultRate = def.DefaultRate
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if cfg.Fades.Preload <= 0 {
		cfg.Fades.Preload = cfg.Transition
	}
	return cfg
}

// Clips returns the slideshow in play order.
func (e *Engine) Clips() []model.Clip {
	return append([]model.Clip(nil), e.clips...)
}

// State returns a snapshot of the current playback state.
func (e *Engine) State() model.PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// OnChange registers fn for state snapshots. The returned func unregisters it.
// fn runs outside the engine lock but must not call back into the engine synchronously.
func (e *Engine) OnChange(fn Listener) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// --- Controls ---

// Start begins the session: plays the active clip and fades music in.
func (e *Engine) Start() {
	e.update(func() bool {
		e.startLocked()
		return true
	})
}

// TogglePlay starts the session, or pauses/resumes it.
func (e *Engine) TogglePlay() {
	e.update(func() bool {
		switch {
		case !e.st.HasStarted:
			e.startLocked()
		case e.st.IsPlaying:
			e.media[e.active].Pause()
			e.bgmOutLocked(e.cfg.Fades.Pause)
			e.st.IsPlaying = false
		default:
			e.st.IsPlaying = true
			e.playLocked(e.active)
			if e.st.BGMEnabled {
				e.bgmInLocked(e.cfg.Fades.Resume)
			}
		}
		return true
	})
}

// Next queues the following clip, wrapping at the end.
func (e *Engine) Next() {
	e.update(func() bool {
		e.queueLocked(NextIndex(e.st.ActiveIndex, len(e.clips)))
		return true
	})
}

// Prev queues the preceding clip, wrapping at the start.
func (e *Engine) Prev() {
	e.update(func() bool {
		e.queueLocked(PrevIndex(e.st.ActiveIndex, len(e.clips)))
		return true
	})
}

// SkipErrored moves past a clip that failed to play.
func (e *Engine) SkipErrored() {
	e.Next()
}

// Jump plays clip i, starting the session if needed.
func (e *Engine) Jump(i int) error {
	if i < 0 || i >= len(e.clips) {
		return ErrInvalidIndex
	}
	e.update(func() bool {
		e.st.HasStarted = true
		e.st.IsPlaying = true
		if i == e.st.ActiveIndex {
			e.playLocked(e.active)
		} else {
			e.queueLocked(i)
		}
		if e.st.BGMEnabled {
			e.bgmInLocked(e.cfg.Fades.JumpIn)
		}
		return true
	})
	return nil
}

// ToggleMute flips the mute flag on both buffers so the hidden one is never audible.
func (e *Engine) ToggleMute() {
	s, ok := e.update(func() bool {
		e.st.IsMuted = !e.st.IsMuted
		for _, m := range e.media {
			m.SetMuted(e.st.IsMuted)
		}
		return true
	})
	if ok {
		e.persist(s)
	}
}

// SetRate clamps r to the configured range and applies it to both buffers.
func (e *Engine) SetRate(r float64) {
	s, ok := e.update(func() bool {
		if math.IsNaN(r) {
			return false
		}
		e.st.PlaybackRate = Clamp(r, e.cfg.MinRate, e.cfg.MaxRate)
		for _, m := range e.media {
			m.SetRate(e.st.PlaybackRate)
		}
		return true
	})
	if ok {
		e.persist(s)
	}
}

// ToggleBGM enables or disables background music with its own fade envelope.
func (e *Engine) ToggleBGM() {
	s, ok := e.update(func() bool {
		e.st.BGMEnabled = !e.st.BGMEnabled
		if e.st.BGMEnabled && e.st.HasStarted {
			e.bgmInLocked(e.cfg.Fades.BGMOn)
		} else {
			e.bgmOutLocked(e.cfg.Fades.BGMOff)
		}
		return true
	})
	if ok {
		e.persist(s)
	}
}

// SetVolume sets the music level that fades aim for.
func (e *Engine) SetVolume(v float64) {
	s, ok := e.update(func() bool {
		if math.IsNaN(v) {
			return false
		}
		e.st.Volume = audio.Clamp01(v)
		if e.bgm != nil && e.st.IsPlaying && e.st.BGMEnabled {
			e.fader.Stop()
			e.bgm.SetVolume(e.st.Volume)
		}
		return true
	})
	if ok {
		e.persist(s)
	}
}

// --- Media events ---

// HandleProgress records the active clip's position and advances early when the
// next clip is already preloaded.
func (e *Engine) HandleProgress(layer model.Layer, pos, dur float64) {
	e.update(func() bool {
		if layer.Index() != e.active {
			return false
		}
		if math.IsNaN(dur) || math.IsInf(dur, 0) || dur < 0 {
			dur = 0
		}
		if math.IsNaN(pos) || pos < 0 {
			pos = 0
		}
		e.st.ClipDuration = dur
		e.st.ClipProgress = 0
		if dur > 0 {
			e.st.ClipProgress = math.Min(1, pos/dur)
		}
		e.st.TextVisible = pos > textMargin && dur-pos > textMargin
		logging.Trace(slog.Default(), "Clip progress", "layer", layer, "pos", pos, "dur", dur)

		next := NextIndex(e.st.ActiveIndex, len(e.clips))
		lead := time.Duration(e.cfg.Fades.Preload).Seconds()
		if dur > 0 && pos >= dur-lead && !e.guard && e.preloadedLocked(next) {
			e.guard = true
			slog.Debug("Advancing to preloaded clip", "from", e.st.ActiveIndex, "to", next)
			e.resetProgressLocked()
			e.swapLocked(next)
		}
		return true
	})
}

// HandleEnded advances when the active clip ends without a ready preload.
func (e *Engine) HandleEnded(layer model.Layer) {
	e.update(func() bool {
		if layer.Index() != e.active || e.guard {
			return false
		}
		e.guard = true
		e.queueLocked(NextIndex(e.st.ActiveIndex, len(e.clips)))
		return true
	})
}

// HandleError surfaces a playback failure on the active clip.
func (e *Engine) HandleError(layer model.Layer) {
	e.update(func() bool {
		if layer.Index() != e.active {
			return false
		}
		slog.Warn("Clip playback failed", "clip", e.clips[e.st.ActiveIndex].ID)
		e.st.ErrorMessage = MsgClipNotFound
		return true
	})
}

// HandleAutoplayBlocked reverts to paused when the platform refused to play.
func (e *Engine) HandleAutoplayBlocked(layer model.Layer) {
	e.update(func() bool {
		if layer.Index() != e.active || !e.st.IsPlaying {
			return false
		}
		slog.Debug("Autoplay blocked, waiting for interaction")
		e.st.IsPlaying = false
		return true
	})
}

// HandleBGMError shows a non-blocking notice that the music could not load.
func (e *Engine) HandleBGMError() {
	e.update(func() bool {
		if e.st.BGMError == MsgBGMMissing {
			return false
		}
		e.st.BGMError = MsgBGMMissing
		return true
	})
}

// Close cancels the pending swap timer and any fade in flight.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.swapTimer != nil {
		e.swapTimer.Stop()
		e.swapTimer = nil
	}
	e.swapSeq++
	e.subs = map[int]Listener{}
	e.mu.Unlock()

	if e.fader != nil {
		e.fader.Close()
	}
}

// --- internals (lock held) ---

func (e *Engine) update(fn func() bool) (model.PlaybackState, bool) {
	e.mu.Lock()
	if e.closed || !fn() {
		e.mu.Unlock()
		return model.PlaybackState{}, false
	}
	s := e.snapshotLocked()
	subs := make([]Listener, 0, len(e.subs))
	for _, l := range e.subs {
		subs = append(subs, l)
	}
	e.mu.Unlock()

	for _, l := range subs {
		l(s)
	}
	return s, true
}

func (e *Engine) snapshotLocked() model.PlaybackState {
	s := e.st
	s.ActiveLayer = model.LayerAt(e.active)
	s.ActiveClip = e.clips[s.ActiveIndex]
	s.ClipCount = len(e.clips)
	s.ElapsedText = FormatTime(s.ClipProgress * s.ClipDuration)
	s.DurationText = FormatTime(s.ClipDuration)
	s.TransitionSeconds = time.Duration(e.cfg.Transition).Seconds()
	if s.PreloadedIndex != nil {
		v := *s.PreloadedIndex
		s.PreloadedIndex = &v
	}
	return s
}

func (e *Engine) startLocked() {
	e.st.HasStarted = true
	e.st.IsPlaying = true
	e.playLocked(e.active)
	if e.st.BGMEnabled {
		e.bgmInLocked(e.cfg.Fades.Start)
	}
}

func (e *Engine) playLocked(slot int) {
	err := e.media[slot].Play()
	if err == nil {
		return
	}
	if errors.Is(err, ErrAutoplayBlocked) {
		slog.Debug("Autoplay blocked, waiting for interaction", "layer", model.LayerAt(slot))
	} else {
		slog.Warn("Failed to start clip", "layer", model.LayerAt(slot), "error", err)
	}
	e.st.IsPlaying = false
}

func (e *Engine) bgmInLocked(d config.Duration) {
	if e.bgm == nil {
		return
	}
	if err := e.bgm.Play(); err != nil {
		slog.Debug("BGM play refused", "error", err)
	}
	e.fader.Fade(e.st.Volume, time.Duration(d), false)
}

func (e *Engine) bgmOutLocked(d config.Duration) {
	if e.bgm == nil {
		return
	}
	e.fader.Fade(0, time.Duration(d), true)
}

// loadLocked points a buffer at clip idx. onReady runs under the lock, and only
// if no newer load has replaced this one.
func (e *Engine) loadLocked(slot, idx int, onReady func(error)) {
	e.gen[slot]++
	g := e.gen[slot]
	e.loaded[slot] = idx

	m := e.media[slot]
	m.SetMuted(e.st.IsMuted)
	m.SetRate(e.st.PlaybackRate)
	m.Load(e.clips[idx].VideoSrc, func(err error) {
		e.update(func() bool {
			if e.gen[slot] != g {
				return false
			}
			if err != nil && !errors.Is(err, ErrMediaLoadFailed) {
				err = errors.Join(ErrMediaLoadFailed, err)
			}
			onReady(err)
			return true
		})
	})
}

// preloadLocked loads the next clip into the idle slot. It only runs once a swap
// has finished, so a clip shorter than the load time plus the transition and
// the preload lead (about 1.6s with defaults) never has its successor ready and
// always advances through the ended path.
func (e *Engine) preloadLocked() {
	n := len(e.clips)
	if n < 2 {
		return
	}
	slot := 1 - e.active
	next := NextIndex(e.st.ActiveIndex, n)
	e.st.PreloadedIndex = nil
	e.st.PreloadedReady = false
	e.loadLocked(slot, next, func(err error) {
		if err != nil {
			slog.Warn("Preload failed", "clip", e.clips[next].ID, "error", err)
			e.loaded[slot] = -1
			return
		}
		idx := next
		e.st.PreloadedIndex = &idx
		e.st.PreloadedReady = true
	})
}

func (e *Engine) preloadedLocked(idx int) bool {
	return e.st.PreloadedReady && e.st.PreloadedIndex != nil && *e.st.PreloadedIndex == idx &&
		e.loaded[1-e.active] == idx
}

func (e *Engine) resetProgressLocked() {
	e.st.ClipProgress = 0
	e.st.ClipDuration = 0
	e.st.TextVisible = false
	e.st.PreloadedReady = false
	e.st.PreloadedIndex = nil
}

// queueLocked loads target into the inactive buffer and swaps once it can play.
// A buffer that already finished preloading target swaps at once.
func (e *Engine) queueLocked(target int) {
	if target == e.st.ActiveIndex || target < 0 || target >= len(e.clips) {
		return
	}
	e.guard = true
	e.st.ErrorMessage = ""
	warm := e.preloadedLocked(target)
	e.resetProgressLocked()
	e.st.TransitionType = TransitionFor(e.clips, e.st.ActiveIndex, target, e.cfg.SwipeIndex)
	e.pending = target

	if warm {
		e.gen[1-e.active]++
		e.swapLocked(target)
		return
	}
	e.loadLocked(1-e.active, target, func(err error) {
		e.swapLocked(target)
		if err != nil {
			slog.Warn("Queued clip failed to load", "clip", e.clips[target].ID, "error", err)
			e.st.ErrorMessage = MsgClipNotFound
		}
	})
}

// swapLocked makes the inactive buffer active. The old buffer keeps running for
// the transition window, then is paused and reused for the next preload.
func (e *Engine) swapLocked(target int) {
	old := e.active
	next := 1 - old
	e.st.TransitionType = TransitionFor(e.clips, e.st.ActiveIndex, target, e.cfg.SwipeIndex)
	if e.st.IsPlaying {
		e.playLocked(next)
	}

	e.active = next
	e.st.ActiveIndex = target
	e.st.Transitioning = true
	e.st.PreloadedReady = false
	e.st.PreloadedIndex = nil
	e.pending = -1
	e.guard = false

	if e.swapTimer != nil {
		e.swapTimer.Stop()
	}
	e.swapSeq++
	seq := e.swapSeq
	e.swapTimer = time.AfterFunc(time.Duration(e.cfg.Transition), func() {
		e.finishSwap(seq, old)
	})
}

func (e *Engine) finishSwap(seq uint64, old int) {
	e.update(func() bool {
		if seq != e.swapSeq {
			return false
		}
		e.swapTimer = nil
		e.media[old].Pause()
		e.st.Transitioning = false
		if e.pending < 0 {
			e.preloadLocked()
		}
		return true
	})
}

func (e *Engine) persist(s model.PlaybackState) {
	if e.prefs == nil {
		return
	}
	err := e.prefs.SavePlayerPrefs(context.Background(), config.PlayerPrefs{
		Volume:     s.Volume,
		Muted:      s.IsMuted,
		Rate:       s.PlaybackRate,
		BGMEnabled: s.BGMEnabled,
	})
	if err != nil {
		slog.Warn("Failed to save player preferences", "error", err)
	}
}
