package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Single writer; concurrent cache writes would otherwise hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	d := &DB{db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return d, nil
}

// Stats reports row counts for the diagnostics endpoint.
func (d *DB) Stats() (cacheRows, stateRows int, err error) {
	if err = d.QueryRow("SELECT count(*) FROM kv_cache").Scan(&cacheRows); err != nil {
		return 0, 0, err
	}
	if err = d.QueryRow("SELECT count(*) FROM persistent_state").Scan(&stateRows); err != nil {
		return 0, 0, err
	}
	return cacheRows, stateRows, nil
}

// PruneCache deletes cache rows not written since olderThan ago.
func (d *DB) PruneCache(olderThan time.Duration) (int64, error) {
	res, err := d.Exec("DELETE FROM kv_cache WHERE updated_at < ?", time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearCache deletes every cache row. Persistent state is kept.
func (d *DB) ClearCache() (int64, error) {
	res, err := d.Exec("DELETE FROM kv_cache")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS kv_cache (
			key TEXT PRIMARY KEY,
			value BLOB,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}
	return nil
}
