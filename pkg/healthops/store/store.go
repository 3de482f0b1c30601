// Package store persists conversation snapshots keyed by thread id.
//
// A snapshot is an opaque JSON document plus a version number that the
// store increments on every save. Callers can pass the version they last
// read to detect a concurrent writer. Three backends are provided: an
// in-memory map, SQLite and Postgres.
package store

import (
	"context"
	"errors"
	"time"
)

// Store persists thread snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save writes data for threadID and returns the new version.
	// expected is the version the caller last loaded, 0 for a new thread,
	// or AnyVersion to overwrite unconditionally. A mismatch returns
	// ErrVersionConflict and writes nothing.
	Save(ctx context.Context, threadID string, data []byte, expected int) (int, error)

	// Load returns the latest snapshot or ErrNotFound.
	Load(ctx context.Context, threadID string) (Snapshot, error)

	// Delete removes the thread and reports whether it existed.
	Delete(ctx context.Context, threadID string) (bool, error)

	// List returns metadata for every stored thread ordered by id.
	List(ctx context.Context) ([]Info, error)

	// Close releases any resources (connections, files).
	Close() error
}

// AnyVersion disables the version check in Save.
const AnyVersion = -1

// Snapshot is one stored thread.
type Snapshot struct {
	ThreadID  string
	Version   int
	UpdatedAt time.Time
	Data      []byte
}

// Info describes a stored thread without its data.
type Info struct {
	ThreadID  string
	Version   int
	UpdatedAt time.Time
	Size      int64
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the thread has no snapshot.
	ErrNotFound = errors.New("snapshot not found")

	// ErrVersionConflict indicates the stored version differs from the
	// one the caller expected.
	ErrVersionConflict = errors.New("snapshot version conflict")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store closed")

	// ErrEmptyThreadID indicates a blank thread id.
	ErrEmptyThreadID = errors.New("thread id is empty")
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)
