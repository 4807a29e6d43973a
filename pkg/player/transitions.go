package player

import (
	"fmt"
	"math"

	"tripreel/pkg/model"
)

// NextIndex returns the clip after i, wrapping to 0.
func NextIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	return (i + 1) % n
}

// PrevIndex returns the clip before i, wrapping to n-1.
func PrevIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	return (i - 1 + n) % n
}

// TransitionFor picks the crossfade preset for moving from clip current to clip target.
// Order matters: intro/outro boundaries always get the plain fade, then the swipe
// slot, then transfer clips, then a change of place.
func TransitionFor(clips []model.Clip, current, target, swipeIndex int) model.TransitionType {
	if current < 0 || current >= len(clips) || target < 0 || target >= len(clips) {
		return model.TransitionDefault
	}
	from, to := clips[current], clips[target]
	switch {
	case from.Theme == model.ThemeIntro || to.Theme == model.ThemeOutro:
		return model.TransitionDefault
	case target == swipeIndex:
		return model.TransitionSwipe
	case to.Theme == model.ThemeTransfer:
		return model.TransitionTransfer
	case from.Country != to.Country || from.City != to.City:
		return model.TransitionCountry
	}
	return model.TransitionDefault
}

// FormatTime renders seconds as m:ss. Negative or non-finite input yields 0:00.
func FormatTime(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		sec = 0
	}
	s := int(math.Floor(sec))
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
