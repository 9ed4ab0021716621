package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Driver() Driver { return DriverPostgres }

func (p *Postgres) Read(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = $1`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	return payload, nil
}

func (p *Postgres) Write(ctx context.Context, key string, data []byte) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO state(bucket, payload, updated_at) VALUES($1, $2, now())
		ON CONFLICT(bucket) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`, key, data)
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// isUndefinedTable reports a state table dropped after Open. Nothing was
// stored, so callers see ErrNotFound.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
