package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Connection pool limits for Postgres.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists snapshots to Postgres. Several processes may
// share one database; the version guard on update keeps their writes
// from interleaving.
type PostgresStore struct {
	sqlStore
}

var postgresDialect = dialect{
	selectVersion: `SELECT version FROM conversations WHERE thread_id = $1 FOR UPDATE`,
	insert:        `INSERT INTO conversations (thread_id, version, updated_at, data) VALUES ($1, $2, $3, $4) ON CONFLICT (thread_id) DO NOTHING`,
	update:        `UPDATE conversations SET version = $1, updated_at = $2, data = $3 WHERE thread_id = $4 AND version = $5`,
	load:          `SELECT version, updated_at, data FROM conversations WHERE thread_id = $1`,
	remove:        `DELETE FROM conversations WHERE thread_id = $1`,
	list:          `SELECT thread_id, version, updated_at, octet_length(data) FROM conversations ORDER BY thread_id`,

	encodeTime: func(t time.Time) any { return t },
	scanTime: func(src any) (time.Time, error) {
		if t, ok := src.(time.Time); ok {
			return t.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", src)
	},
}

// NewPostgresStore connects to dsn and applies the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("postgres store ready")

	return &PostgresStore{sqlStore{db: db, d: postgresDialect}}, nil
}
