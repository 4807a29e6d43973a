package model

// ClipTheme tags a clip for transition selection.
type ClipTheme string

const (
	ThemeIntro    ClipTheme = "intro"
	ThemeOutro    ClipTheme = "outro"
	ThemeTransfer ClipTheme = "transfer"
)

// Clip is one video segment of the slideshow.
type Clip struct {
	ID       string    `json:"id" yaml:"id"`
	DayLabel string    `json:"dayLabel" yaml:"day_label"`
	Title    string    `json:"title" yaml:"title"`
	Country  string    `json:"country" yaml:"country"`
	City     string    `json:"city" yaml:"city"`
	Landmark string    `json:"landmark" yaml:"landmark"`
	Subtitle string    `json:"subtitle" yaml:"subtitle"`
	VideoSrc string    `json:"videoSrc" yaml:"video_src"`
	Theme    ClipTheme `json:"theme" yaml:"theme"`
}

// Layer names one of the two stacked video buffers.
type Layer string

const (
	LayerA Layer = "A"
	LayerB Layer = "B"
)

// Index maps the layer to its buffer slot.
func (l Layer) Index() int {
	if l == LayerB {
		return 1
	}
	return 0
}

// LayerAt maps a buffer slot to its layer name.
func LayerAt(i int) Layer {
	if i == 1 {
		return LayerB
	}
	return LayerA
}

// TransitionType selects the visual crossfade preset.
type TransitionType string

const (
	TransitionDefault  TransitionType = "default"
	TransitionCountry  TransitionType = "country"
	TransitionTransfer TransitionType = "transfer"
	TransitionSwipe    TransitionType = "swipe"
)

// PlaybackState is a read-only snapshot of the slideshow engine.
type PlaybackState struct {
	ActiveLayer       Layer          `json:"activeLayer"`
	ActiveIndex       int            `json:"activeIndex"`
	ActiveClip        Clip           `json:"activeClip"`
	ClipCount         int            `json:"clipCount"`
	IsPlaying         bool           `json:"isPlaying"`
	HasStarted        bool           `json:"hasStarted"`
	IsMuted           bool           `json:"isMuted"`
	BGMEnabled        bool           `json:"bgmEnabled"`
	Volume            float64        `json:"volume"`
	PlaybackRate      float64        `json:"playbackRate"`
	TransitionType    TransitionType `json:"transitionType"`
	Transitioning     bool           `json:"transitioning"`
	PreloadedIndex    *int           `json:"preloadedIndex"`
	PreloadedReady    bool           `json:"preloadedReady"`
	ClipProgress      float64        `json:"clipProgress"`
	ClipDuration      float64        `json:"clipDuration"`
	ElapsedText       string         `json:"elapsedText"`
	DurationText      string         `json:"durationText"`
	TextVisible       bool           `json:"textVisible"`
	ErrorMessage      string         `json:"errorMessage,omitempty"`
	BGMError          string         `json:"bgmError,omitempty"`
	BGMSource         string         `json:"bgmSource"`
	TransitionSeconds float64        `json:"transitionSeconds"`
}
