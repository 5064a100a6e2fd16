package kv

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"checkround/pkg/db"
)

const sqliteFileName = "checkround.db"

// SQLiteBackend stores keys as rows of the kv_entries table.
type SQLiteBackend struct {
	db *sql.DB
}

type kvRow struct {
	Key   string `db:"key"`
	Value []byte `db:"value"`
}

// OpenSQLite opens the database at path and applies pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	sqlDB, err := db.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Migrate(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteBackend{db: sqlDB}, nil
}

func sqlitePath(opts Options) string {
	if opts.InMemory {
		return db.MemoryPath
	}
	return filepath.Join(opts.Dir, sqliteFileName)
}

func (s *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var row kvRow
	err := db.Get(ctx, s.db, &row, `SELECT key, value FROM kv_entries WHERE key = ?`, key)
	if db.NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Value, nil
}

func (s *SQLiteBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := db.Exec(ctx, s.db, `
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}

func (s *SQLiteBackend) Delete(ctx context.Context, key string) error {
	_, err := db.Exec(ctx, s.db, `DELETE FROM kv_entries WHERE key = ?`, key)
	return err
}

func (s *SQLiteBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := db.Select(ctx, s.db, &keys, `SELECT key FROM kv_entries ORDER BY key`); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
