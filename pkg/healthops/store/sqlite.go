package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists snapshots to a SQLite file. It suits a single
// process; use ":memory:" in tests.
type SQLiteStore struct {
	sqlStore
}

var sqliteDialect = dialect{
	selectVersion: `SELECT version FROM conversations WHERE thread_id = ?`,
	insert:        `INSERT INTO conversations (thread_id, version, updated_at, data) VALUES (?, ?, ?, ?)`,
	update:        `UPDATE conversations SET version = ?, updated_at = ?, data = ? WHERE thread_id = ? AND version = ?`,
	load:          `SELECT version, updated_at, data FROM conversations WHERE thread_id = ?`,
	remove:        `DELETE FROM conversations WHERE thread_id = ?`,
	list:          `SELECT thread_id, version, updated_at, LENGTH(data) FROM conversations ORDER BY thread_id`,

	encodeTime: func(t time.Time) any { return t.Format(time.RFC3339Nano) },
	scanTime: func(src any) (time.Time, error) {
		switch v := src.(type) {
		case string:
			return time.Parse(time.RFC3339Nano, v)
		case []byte:
			return time.Parse(time.RFC3339Nano, string(v))
		case time.Time:
			return v, nil
		}
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", src)
	},
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database exists per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{sqlStore{db: db, d: sqliteDialect}}, nil
}
