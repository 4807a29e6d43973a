package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tripreel/pkg/model"
)

// Message types on /ws/player.
const (
	MsgState   = "state"
	MsgCommand = "command"
	MsgEvent   = "event"
	MsgControl = "control"
)

// Message is the envelope for everything sent over the player socket.
type Message struct {
	Type    string               `json:"type"`
	State   *model.PlaybackState `json:"state,omitempty"`
	Command *Command             `json:"command,omitempty"`
	Event   *Event               `json:"event,omitempty"`
	Control *ControlRequest      `json:"control,omitempty"`
}

// Command tells the browser what to do with one of its media elements.
// Target is "A", "B" or "audio".
type Command struct {
	Target string   `json:"target"`
	Op     string   `json:"op"` // load, play, pause, muted, rate, volume
	Src    string   `json:"src,omitempty"`
	Token  uint64   `json:"token,omitempty"`
	Value  *float64 `json:"value,omitempty"`
	Muted  *bool    `json:"muted,omitempty"`
}

// Event reports what happened to a browser media element.
type Event struct {
	Kind     string      `json:"kind"` // canplay, timeupdate, ended, error, play_result, audio_error
	Layer    model.Layer `json:"layer,omitempty"`
	Token    uint64      `json:"token,omitempty"`
	Position float64     `json:"position,omitempty"`
	Duration float64     `json:"duration,omitempty"`
	Blocked  bool        `json:"blocked,omitempty"`
}

const (
	sendBuffer = 256
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans player messages out to every connected browser and feeds their
// events and controls back in.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	upgrader websocket.Upgrader

	onEvent   func(Event)
	onControl func(ControlRequest)
	onConnect func() []Message
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handle installs the callbacks. Any of them may be nil.
func (h *Hub) Handle(onEvent func(Event), onControl func(ControlRequest), onConnect func() []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvent = onEvent
	h.onControl = onControl
	h.onConnect = onConnect
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. Slow clients drop messages rather than block.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to encode player message", "type", msg.Type, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("Player client too slow, dropping message", "client", c.id, "type", msg.Type)
		}
	}
}

// ServeHTTP upgrades the request and runs the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("WebSocket upgrade failed", "error", err)
		return
	}
	c := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	replay := h.onConnect
	h.mu.Unlock()
	slog.Info("Player client connected", "client", c.id, "remote", r.RemoteAddr)

	if replay != nil {
		for _, m := range replay() {
			data, err := json.Marshal(m)
			if err != nil {
				continue
			}
			select {
			case c.send <- data:
			default:
			}
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()
	h.readPump(c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
	<-done
	slog.Info("Player client disconnected", "client", c.id)
}

func (h *Hub) readPump(c *wsClient) {
	c.conn.SetReadLimit(64 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Player socket read failed", "client", c.id, "error", err)
			}
			return
		}
		h.dispatch(msg)
	}
}

func (h *Hub) dispatch(msg Message) {
	h.mu.RLock()
	onEvent, onControl := h.onEvent, h.onControl
	h.mu.RUnlock()

	switch msg.Type {
	case MsgEvent:
		if msg.Event != nil && onEvent != nil {
			onEvent(*msg.Event)
		}
	case MsgControl:
		if msg.Control != nil && onControl != nil {
			onControl(*msg.Control)
		}
	default:
		slog.Debug("Ignoring player message", "type", msg.Type)
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}
