package player

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripreel/pkg/model"
)

func TestIndexWrap(t *testing.T) {
	for _, n := range []int{1, 2, 5, 12} {
		assert.Equal(t, 0, NextIndex(n-1, n))
		assert.Equal(t, n-1, PrevIndex(0, n))
	}
	assert.Equal(t, 3, NextIndex(2, 5))
	assert.Equal(t, 1, PrevIndex(2, 5))
	assert.Equal(t, 0, NextIndex(3, 0))
}

func TestTransitionFor(t *testing.T) {
	clips := []model.Clip{
		{ID: "intro", Country: "Italy", City: "Rome", Theme: model.ThemeIntro},
		{ID: "rome-a", Country: "Italy", City: "Rome"},
		{ID: "rome-b", Country: "Italy", City: "Rome"},
		{ID: "milan", Country: "Italy", City: "Milan"},
	}
	assert.Equal(t, model.TransitionDefault, TransitionFor(clips, 1, 2, 5), "same city")
	assert.Equal(t, model.TransitionCountry, TransitionFor(clips, 2, 3, 5), "different city")
	assert.Equal(t, model.TransitionDefault, TransitionFor(clips, 0, 3, 5), "leaving the intro")

	withOutro := append(clips, model.Clip{ID: "outro", Country: "Switzerland", City: "Zurich", Theme: model.ThemeOutro})
	assert.Equal(t, model.TransitionDefault, TransitionFor(withOutro, 3, 4, 5), "into the outro")

	tests := []struct {
		name    string
		clips   []model.Clip
		current int
		target  int
		want    model.TransitionType
	}{
		{
			name: "swipe slot beats transfer",
			clips: []model.Clip{
				{}, {}, {}, {}, {City: "Rome"},
				{City: "Florence", Theme: model.ThemeTransfer},
			},
			current: 4, target: 5, want: model.TransitionSwipe,
		},
		{
			name:    "transfer beats place change",
			clips:   []model.Clip{{Country: "Italy", City: "Florence"}, {Country: "Switzerland", Theme: model.ThemeTransfer}},
			current: 0, target: 1, want: model.TransitionTransfer,
		},
		{
			name:    "country change",
			clips:   []model.Clip{{Country: "Italy", City: "Como"}, {Country: "Switzerland", City: "Como"}},
			current: 0, target: 1, want: model.TransitionCountry,
		},
		{
			name:    "out of range",
			clips:   []model.Clip{{}},
			current: 0, target: 3, want: model.TransitionDefault,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TransitionFor(tt.clips, tt.current, tt.target, 5))
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0:00", FormatTime(0))
	assert.Equal(t, "0:09", FormatTime(9.99))
	assert.Equal(t, "1:05", FormatTime(65))
	assert.Equal(t, "12:00", FormatTime(720))
	assert.Equal(t, "0:00", FormatTime(-3))
	assert.Equal(t, "0:00", FormatTime(math.NaN()))
	assert.Equal(t, "0:00", FormatTime(math.Inf(1)))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.6, Clamp(0.2, 0.6, 1.25))
	assert.Equal(t, 1.25, Clamp(3, 0.6, 1.25))
	assert.Equal(t, 1.0, Clamp(1, 0.6, 1.25))
}

func TestEmbeddedClips(t *testing.T) {
	clips, err := LoadEmbeddedClips()
	require.NoError(t, err)
	require.Len(t, clips, 12)
	assert.Equal(t, model.ThemeIntro, clips[0].Theme)
	assert.Equal(t, model.ThemeTransfer, clips[5].Theme)
	assert.Equal(t, model.ThemeOutro, clips[len(clips)-1].Theme)
	for _, c := range clips {
		assert.NotEmpty(t, c.VideoSrc, c.ID)
	}
	assert.Equal(t, model.TransitionSwipe, TransitionFor(clips, 4, 5, 5))
}

func TestParseClipsErrors(t *testing.T) {
	_, err := ParseClips([]byte("[]"))
	assert.ErrorIs(t, err, ErrNoClips)

	_, err = ParseClips([]byte("- id: a\n  video_src: /a.mp4\n- id: a\n  video_src: /b.mp4\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = ParseClips([]byte("- id: a\n"))
	assert.ErrorContains(t, err, "video_src")

	_, err = ParseClips([]byte("{not: [a list"))
	assert.Error(t, err)
}
