// Package storage provides byte slots keyed by name. The persistence adapter
// keeps the primary and backup snapshot copies in two slots of one backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("slot not found")

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFS       Driver = "fs"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverRedis    Driver = "redis"
	DriverS3       Driver = "s3"
	DriverGCS      Driver = "gcs"
)

// Backend reads and replaces whole slots. Read returns ErrNotFound for a
// slot that was never written.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Driver() Driver
	Close() error
}

type Config struct {
	Driver Driver

	DataDir    string
	SQLitePath string

	DatabaseURL string
	MySQLDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3 S3Config

	GCSBucket          string
	GCSCredentialsJSON string
}

func ParseDriver(raw string) (Driver, error) {
	d := Driver(strings.ToLower(strings.TrimSpace(raw)))
	switch d {
	case DriverMemory, DriverFS, DriverSQLite, DriverPostgres, DriverMySQL, DriverRedis, DriverS3, DriverGCS:
		return d, nil
	case "":
		return DriverFS, nil
	}
	return "", fmt.Errorf("unknown storage driver %q", raw)
}

// Open constructs the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFS, "":
		return NewFS(cfg.DataDir)
	case DriverSQLite:
		return NewSQLite(ctx, cfg.SQLitePath)
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		return NewPostgres(ctx, cfg.DatabaseURL)
	case DriverMySQL:
		if cfg.MySQLDSN == "" {
			return nil, errors.New("MYSQL_DSN is required for the mysql driver")
		}
		return NewMySQL(ctx, cfg.MySQLDSN)
	case DriverRedis:
		backend := NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := backend.Ping(ctx); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return backend, nil
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverGCS:
		return NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
