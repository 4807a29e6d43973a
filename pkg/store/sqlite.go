package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"tripreel/pkg/db"
)

// SQLiteStore implements Store on the local database.
type SQLiteStore struct {
	db *db.DB
	// maxValueBytes bounds a single cache value; 0 disables the check.
	maxValueBytes int
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithMaxValueBytes makes Set reject values larger than n bytes with ErrQuotaExceeded.
func WithMaxValueBytes(n int) SQLiteOption {
	return func(s *SQLiteStore) { s.maxValueBytes = n }
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(d *db.DB, opts ...SQLiteOption) *SQLiteStore {
	s := &SQLiteStore{db: d}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Cache ---

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var val []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_cache WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if isGzip(val) {
		plain, err := decompress(val)
		if err != nil {
			return "", false, fmt.Errorf("corrupt cache row %q: %w", key, err)
		}
		val = plain
	}
	return string(val), true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, val string) error {
	if s.maxValueBytes > 0 && len(val) > s.maxValueBytes {
		return fmt.Errorf("%w: %d bytes for %q", ErrQuotaExceeded, len(val), key)
	}

	data := []byte(val)
	if compressed, err := compress(data); err == nil && len(compressed) < len(data) {
		data = compressed
	}

	query := `INSERT OR REPLACE INTO kv_cache (key, value, updated_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, data, time.Now().UTC())
	return err
}

// Keys lists cache keys with the given prefix.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM kv_cache WHERE key LIKE ? ORDER BY key", prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// --- Compression Pooling ---

var (
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func isGzip(b []byte) bool {
	return len(b) > 2 && b[0] == 0x1f && b[1] == 0x8b
}

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// buf goes back to the pool.
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
