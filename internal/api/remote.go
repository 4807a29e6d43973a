package api

import (
	"log/slog"
	"sync"

	"tripreel/pkg/audio"
	"tripreel/pkg/model"
	"tripreel/pkg/player"
)

// RemoteMedia is a browser <video> element driven over the hub.
// Play always succeeds locally; a refused autoplay comes back as a play_result event.
type RemoteMedia struct {
	hub   *Hub
	layer model.Layer

	mu      sync.Mutex
	token   uint64
	src     string
	ready   func(error)
	playing bool
	muted   bool
	rate    float64
}

func NewRemoteMedia(h *Hub, layer model.Layer) *RemoteMedia {
	return &RemoteMedia{hub: h, layer: layer, rate: 1}
}

func (m *RemoteMedia) Load(src string, ready func(error)) {
	m.mu.Lock()
	m.token++
	m.src = src
	m.ready = ready
	m.playing = false
	cmd := Command{Target: string(m.layer), Op: "load", Src: src, Token: m.token}
	m.mu.Unlock()
	m.send(cmd)
}

func (m *RemoteMedia) Play() error {
	m.mu.Lock()
	m.playing = true
	m.mu.Unlock()
	m.send(Command{Target: string(m.layer), Op: "play"})
	return nil
}

func (m *RemoteMedia) Pause() {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
	m.send(Command{Target: string(m.layer), Op: "pause"})
}

func (m *RemoteMedia) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	m.mu.Unlock()
	m.send(Command{Target: string(m.layer), Op: "muted", Muted: &muted})
}

func (m *RemoteMedia) SetRate(rate float64) {
	m.mu.Lock()
	m.rate = rate
	m.mu.Unlock()
	m.send(Command{Target: string(m.layer), Op: "rate", Value: &rate})
}

// resolve completes the pending load if token matches it. It reports whether it did.
func (m *RemoteMedia) resolve(token uint64, err error) bool {
	m.mu.Lock()
	if token != m.token || m.ready == nil {
		m.mu.Unlock()
		return false
	}
	ready := m.ready
	m.ready = nil
	m.mu.Unlock()

	ready(err)
	return true
}

// replay rebuilds the element's state for a newly connected client.
func (m *RemoteMedia) replay() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.src == "" {
		return nil
	}
	target := string(m.layer)
	muted, rate := m.muted, m.rate
	cmds := []Command{
		{Target: target, Op: "muted", Muted: &muted},
		{Target: target, Op: "rate", Value: &rate},
		{Target: target, Op: "load", Src: m.src, Token: m.token},
	}
	if m.playing {
		cmds = append(cmds, Command{Target: target, Op: "play"})
	}
	return commandMessages(cmds)
}

func (m *RemoteMedia) send(cmd Command) {
	m.hub.Broadcast(Message{Type: MsgCommand, Command: &cmd})
}

// RemoteAudio is the browser <audio> element carrying background music.
type RemoteAudio struct {
	hub *Hub
	src string

	mu      sync.Mutex
	volume  float64
	playing bool
}

func NewRemoteAudio(h *Hub, src string) *RemoteAudio {
	return &RemoteAudio{hub: h, src: src}
}

func (a *RemoteAudio) Play() error {
	a.mu.Lock()
	a.playing = true
	a.mu.Unlock()
	a.send(Command{Target: "audio", Op: "play"})
	return nil
}

func (a *RemoteAudio) Pause() {
	a.mu.Lock()
	a.playing = false
	a.mu.Unlock()
	a.send(Command{Target: "audio", Op: "pause"})
}

func (a *RemoteAudio) SetVolume(v float64) {
	v = audio.Clamp01(v)
	a.mu.Lock()
	a.volume = v
	a.mu.Unlock()
	a.send(Command{Target: "audio", Op: "volume", Value: &v})
}

func (a *RemoteAudio) Volume() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volume
}

func (a *RemoteAudio) replay() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := a.volume
	cmds := []Command{
		{Target: "audio", Op: "load", Src: a.src},
		{Target: "audio", Op: "volume", Value: &v},
	}
	if a.playing {
		cmds = append(cmds, Command{Target: "audio", Op: "play"})
	}
	return commandMessages(cmds)
}

func (a *RemoteAudio) send(cmd Command) {
	a.hub.Broadcast(Message{Type: MsgCommand, Command: &cmd})
}

func commandMessages(cmds []Command) []Message {
	out := make([]Message, len(cmds))
	for i := range cmds {
		out[i] = Message{Type: MsgCommand, Command: &cmds[i]}
	}
	return out
}

// playerEvents is the part of the engine that browser events feed.
type playerEvents interface {
	State() model.PlaybackState
	HandleProgress(layer model.Layer, pos, dur float64)
	HandleEnded(layer model.Layer)
	HandleError(layer model.Layer)
	HandleAutoplayBlocked(layer model.Layer)
	HandleBGMError()
}

// Remote connects an engine to browsers over the hub.
type Remote struct {
	hub   *Hub
	media [2]*RemoteMedia
	audio *RemoteAudio // nil when music plays on the local speaker

	mu     sync.RWMutex
	events playerEvents
}

// NewRemote creates the two video elements, plus a music element when bgmSrc is set.
func NewRemote(h *Hub, bgmSrc string) *Remote {
	r := &Remote{
		hub:   h,
		media: [2]*RemoteMedia{NewRemoteMedia(h, model.LayerA), NewRemoteMedia(h, model.LayerB)},
	}
	if bgmSrc != "" {
		r.audio = NewRemoteAudio(h, bgmSrc)
	}
	return r
}

// Media returns the buffers in layer order for player.New.
func (r *Remote) Media() [2]player.Media {
	return [2]player.Media{r.media[0], r.media[1]}
}

// Audio returns the music output, or nil.
func (r *Remote) Audio() audio.Output {
	if r.audio == nil {
		return nil
	}
	return r.audio
}

// Attach routes browser events to e and pushes its state to every client.
// controls may be nil. The returned func detaches the state subscription.
func (r *Remote) Attach(e *player.Engine, controls *PlayerHandler) func() {
	r.mu.Lock()
	r.events = e
	r.mu.Unlock()

	var onControl func(ControlRequest)
	if controls != nil {
		onControl = func(req ControlRequest) {
			if err := controls.Apply(req); err != nil {
				slog.Debug("Player control over socket rejected", "action", req.Action, "error", err)
			}
		}
	}
	r.hub.Handle(r.HandleEvent, onControl, r.replay)

	return e.OnChange(func(s model.PlaybackState) {
		r.hub.Broadcast(Message{Type: MsgState, State: &s})
	})
}

// HandleEvent applies one browser event.
func (r *Remote) HandleEvent(ev Event) {
	r.mu.RLock()
	e := r.events
	r.mu.RUnlock()
	if e == nil {
		return
	}

	if ev.Kind == "audio_error" {
		e.HandleBGMError()
		return
	}
	idx := ev.Layer.Index()
	if ev.Layer != model.LayerA && ev.Layer != model.LayerB {
		slog.Debug("Player event without layer", "kind", ev.Kind)
		return
	}
	m := r.media[idx]

	switch ev.Kind {
	case "canplay":
		m.resolve(ev.Token, nil)
	case "error":
		if !m.resolve(ev.Token, player.ErrMediaLoadFailed) {
			e.HandleError(ev.Layer)
		}
	case "timeupdate":
		e.HandleProgress(ev.Layer, ev.Position, ev.Duration)
	case "ended":
		e.HandleEnded(ev.Layer)
	case "play_result":
		if ev.Blocked {
			e.HandleAutoplayBlocked(ev.Layer)
		}
	default:
		slog.Debug("Unknown player event", "kind", ev.Kind)
	}
}

func (r *Remote) replay() []Message {
	var out []Message
	for _, m := range r.media {
		out = append(out, m.replay()...)
	}
	if r.audio != nil {
		out = append(out, r.audio.replay()...)
	}
	r.mu.RLock()
	e := r.events
	r.mu.RUnlock()
	if e != nil {
		s := e.State()
		out = append(out, Message{Type: MsgState, State: &s})
	}
	return out
}
