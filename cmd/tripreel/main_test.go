package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tripreel/pkg/config"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MAPS_API_KEY", "")

	cfg := `
server:
    address: localhost:0
    assets_dir: ` + filepath.Join(dir, "assets") + `
cache:
    backend: memory
log:
    server:
        path: ` + filepath.Join(dir, "server.log") + `
        level: debug
    requests:
        path: ` + filepath.Join(dir, "requests.log") + `
        level: info
`
	path := filepath.Join(dir, "tripreel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	// Cancels quickly; only the startup sequence is under test.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, run(ctx, path))
}

func TestInitStoreSQLite(t *testing.T) {
	cfg := defaultTestConfig(t)
	cfg.DB.Path = filepath.Join(t.TempDir(), "cache.db")

	st, dbConn, p, err := initStore(context.Background(), cfg)
	require.NoError(t, err)
	defer st.Close()
	require.NotNil(t, dbConn)
	require.True(t, p.Critical)
	require.NoError(t, p.Check(context.Background()))
}

func defaultTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
	return cfg
}
