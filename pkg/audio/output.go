// Package audio drives background music: volume fades over any Output, a
// local looping player, and the choice between a bundled and a fallback track.
package audio

// Output is a pausable audio sink with a linear 0..1 volume.
type Output interface {
	// Play starts or resumes playback. A refusal (e.g. autoplay policy) is an error.
	Play() error
	Pause()
	SetVolume(v float64)
	Volume() float64
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
