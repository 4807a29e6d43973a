package player

import "errors"

var (
	// ErrAutoplayBlocked is returned by Media.Play when the platform refuses to
	// start playback without a user gesture.
	ErrAutoplayBlocked = errors.New("autoplay blocked")
	// ErrMediaLoadFailed is reported to a load callback when the source cannot be played.
	ErrMediaLoadFailed = errors.New("media load failed")

	ErrNoClips      = errors.New("no clips to play")
	ErrInvalidIndex = errors.New("clip index out of range")
)

// Media is one of the two stacked video buffers.
//
// Load replaces the buffer's source. ready is invoked once the new source can
// play through, or with an error if it cannot. ready must be called from a
// different goroutine than Load's caller, never from inside Load itself.
// A later Load supersedes an earlier one; the engine ignores stale callbacks.
type Media interface {
	Load(src string, ready func(error))
	Play() error
	Pause()
	SetMuted(muted bool)
	SetRate(rate float64)
}
