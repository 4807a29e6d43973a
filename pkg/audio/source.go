package audio

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// HeadProber checks whether a URL answers a HEAD request successfully.
type HeadProber interface {
	Head(ctx context.Context, u string) (bool, error)
}

// Source is the chosen background-music location.
type Source struct {
	Location string `json:"location"`
	Fallback bool   `json:"fallback"`
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// LocalPath maps a site path such as "/audio/bgm.mp3" onto assetsDir.
func LocalPath(assetsDir, sitePath string) string {
	if assetsDir == "" {
		return sitePath
	}
	return filepath.Join(assetsDir, filepath.FromSlash(strings.TrimPrefix(sitePath, "/")))
}

// SelectSource picks the bundled track when it exists, otherwise the fallback.
// URLs are probed with HEAD; site paths are checked under assetsDir.
func SelectSource(ctx context.Context, p HeadProber, assetsDir, preferred, fallback string) Source {
	if preferred == "" {
		return Source{Location: fallback, Fallback: true}
	}
	if isURL(preferred) {
		if p != nil {
			ok, err := p.Head(ctx, preferred)
			if err == nil && ok {
				return Source{Location: preferred}
			}
			slog.Info("BGM source unavailable, using fallback", "source", preferred, "error", err)
		}
		return Source{Location: fallback, Fallback: true}
	}

	path := LocalPath(assetsDir, preferred)
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		return Source{Location: preferred}
	}
	slog.Info("BGM file missing, using fallback", "path", path)
	return Source{Location: fallback, Fallback: true}
}
