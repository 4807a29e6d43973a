package player

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tripreel/pkg/model"
)

//go:embed data/clips.yaml
var embeddedClips []byte

// LoadEmbeddedClips parses the slideshow compiled into the binary.
func LoadEmbeddedClips() ([]model.Clip, error) {
	return ParseClips(embeddedClips)
}

// LoadClipsFile parses a slideshow from a YAML file.
func LoadClipsFile(path string) ([]model.Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clips: %w", err)
	}
	return ParseClips(data)
}

// ParseClips decodes a YAML list of clips, keeping file order.
func ParseClips(data []byte) ([]model.Clip, error) {
	var clips []model.Clip
	if err := yaml.Unmarshal(data, &clips); err != nil {
		return nil, fmt.Errorf("failed to parse clips: %w", err)
	}
	if len(clips) == 0 {
		return nil, ErrNoClips
	}
	seen := make(map[string]bool, len(clips))
	for i, c := range clips {
		if c.ID == "" {
			return nil, fmt.Errorf("clip %d: missing id", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("clip %q: duplicate id", c.ID)
		}
		seen[c.ID] = true
		if c.VideoSrc == "" {
			return nil, fmt.Errorf("clip %q: missing video_src", c.ID)
		}
	}
	return clips, nil
}
