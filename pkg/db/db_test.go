package db_test

import (
	"path/filepath"
	"testing"
	"time"

	"tripreel/pkg/db"
)

func TestDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if d == nil {
		t.Fatal("Init() returned nil DB")
	}
	defer d.Close()

	if _, err := d.Exec(`INSERT INTO kv_cache (key, value) VALUES ('a', 'b')`); err != nil {
		t.Fatalf("insert into kv_cache: %v", err)
	}
	if _, err := d.Exec(`INSERT INTO persistent_state (key, value) VALUES ('k', 'v')`); err != nil {
		t.Fatalf("insert into persistent_state: %v", err)
	}

	cacheRows, stateRows, err := d.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if cacheRows != 1 || stateRows != 1 {
		t.Errorf("Stats() = %d, %d; want 1, 1", cacheRows, stateRows)
	}
}

func TestDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("first Init() failed: %v", err)
	}
	if _, err := d.Exec(`INSERT INTO persistent_state (key, value) VALUES ('k', 'v')`); err != nil {
		t.Fatal(err)
	}
	d.Close()

	// Migrations are idempotent and data survives.
	d, err = db.Init(path)
	if err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
	defer d.Close()

	var v string
	if err := d.QueryRow(`SELECT value FROM persistent_state WHERE key = 'k'`).Scan(&v); err != nil {
		t.Fatal(err)
	}
	if v != "v" {
		t.Errorf("got %q, want v", v)
	}
}

func TestDB_PruneAndClear(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "prune.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	now := time.Now().UTC()
	for key, age := range map[string]time.Duration{"stale": 48 * time.Hour, "fresh": time.Minute} {
		if _, err := d.Exec(`INSERT INTO kv_cache (key, value, updated_at) VALUES (?, 'v', ?)`, key, now.Add(-age)); err != nil {
			t.Fatal(err)
		}
	}

	n, err := d.PruneCache(24 * time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("PruneCache() = %d, %v; want 1, nil", n, err)
	}
	n, err = d.ClearCache()
	if err != nil || n != 1 {
		t.Fatalf("ClearCache() = %d, %v; want 1, nil", n, err)
	}
}
