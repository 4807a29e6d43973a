// Package maintenance runs the startup housekeeping on the sqlite cache.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tripreel/pkg/db"
	"tripreel/pkg/store"
)

// cacheVersionKey records which build last wrote the cache.
const cacheVersionKey = "cache_version"

// DefaultRetention is how long an untouched cache row is kept.
const DefaultRetention = 30 * 24 * time.Hour

// Options configures Run.
type Options struct {
	Version   string
	Retention time.Duration
}

// Run clears the cache after a version change and prunes old rows.
// Failures are logged; they never stop startup.
func Run(ctx context.Context, s store.StateStore, d *db.DB, opts Options) {
	slog.Info("Starting database maintenance...")

	if err := checkVersion(ctx, s, d, opts.Version); err != nil {
		slog.Error("Cache version check failed", "error", err)
	}

	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	n, err := d.PruneCache(retention)
	if err != nil {
		slog.Error("Cache pruning failed", "error", err)
		return
	}
	slog.Info("Cache pruning completed", "removed", n, "retention", retention)
}

// checkVersion drops all cached responses when the build changed, since the
// stored value shapes may have changed with it.
func checkVersion(ctx context.Context, s store.StateStore, d *db.DB, version string) error {
	if version == "" {
		return nil
	}
	stored, found := s.GetState(ctx, cacheVersionKey)
	if found && stored == version {
		return nil
	}
	if found {
		n, err := d.ClearCache()
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		slog.Info("Cache cleared after upgrade", "from", stored, "to", version, "removed", n)
	}
	if err := s.SetState(ctx, cacheVersionKey, version); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}
	return nil
}
