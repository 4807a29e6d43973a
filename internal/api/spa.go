package api

import (
	"net/http"
	"os"
	"path"
)

// spaFileSystem serves the assets directory, falling back to index.html for
// client-side routes. Missing media files stay 404 so the player can report them.
type spaFileSystem struct {
	root http.FileSystem
}

func (s *spaFileSystem) Open(name string) (http.File, error) {
	f, err := s.root.Open(name)
	if os.IsNotExist(err) && path.Ext(name) == "" {
		return s.root.Open("index.html")
	}
	return f, err
}
