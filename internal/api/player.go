package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"tripreel/pkg/model"
	"tripreel/pkg/player"
)

var errUnknownAction = errors.New("unknown player action")

// PlayerHandler exposes the playback engine.
type PlayerHandler struct {
	engine *player.Engine
}

func NewPlayerHandler(e *player.Engine) *PlayerHandler {
	return &PlayerHandler{engine: e}
}

// ControlRequest is a user action on the player.
type ControlRequest struct {
	Action string   `json:"action"` // start, toggle_play, next, prev, jump, skip, toggle_mute, rate, toggle_bgm, volume
	Index  *int     `json:"index,omitempty"`
	Value  *float64 `json:"value,omitempty"`
}

// PlayerStateResponse is the state plus the clip list for the UI.
type PlayerStateResponse struct {
	State model.PlaybackState `json:"state"`
	Clips []model.Clip        `json:"clips"`
}

// HandleState handles GET /api/player/state
func (h *PlayerHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PlayerStateResponse{
		State: h.engine.State(),
		Clips: h.engine.Clips(),
	})
}

// HandleControl handles POST /api/player/control
func (h *PlayerHandler) HandleControl(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.Apply(req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.State())
}

// Apply runs one control action.
func (h *PlayerHandler) Apply(req ControlRequest) error {
	e := h.engine
	switch req.Action {
	case "start":
		e.Start()
	case "toggle_play":
		e.TogglePlay()
	case "next":
		e.Next()
	case "prev":
		e.Prev()
	case "skip":
		e.SkipErrored()
	case "jump":
		if req.Index == nil {
			return fmt.Errorf("%w: jump needs an index", errBadRequest)
		}
		return e.Jump(*req.Index)
	case "toggle_mute":
		e.ToggleMute()
	case "rate":
		if req.Value == nil {
			return fmt.Errorf("%w: rate needs a value", errBadRequest)
		}
		e.SetRate(*req.Value)
	case "toggle_bgm":
		e.ToggleBGM()
	case "volume":
		if req.Value == nil {
			return fmt.Errorf("%w: volume needs a value", errBadRequest)
		}
		e.SetVolume(*req.Value)
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, req.Action)
	}
	return nil
}
