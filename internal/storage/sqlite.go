package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite keeps slots as rows of a single state table.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = filepath.Join("data", "backoffice.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Driver() Driver { return DriverSQLite }

func (s *SQLite) Read(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	return payload, nil
}

func (s *SQLite) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO state(bucket, payload, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`, key, data)
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
