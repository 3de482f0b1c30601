package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// dialect holds the statements and time encoding that differ between the
// SQL backends.
type dialect struct {
	selectVersion string
	insert        string
	update        string
	load          string
	remove        string
	list          string

	encodeTime func(time.Time) any
	scanTime   func(src any) (time.Time, error)
}

// sqlStore implements Store over database/sql. Saves run in a transaction
// that re-reads the version, and the UPDATE is guarded by the version it
// read, so concurrent writers from other processes also conflict cleanly.
type sqlStore struct {
	db     *sql.DB
	d      dialect
	mu     sync.RWMutex
	closed bool
}

func (s *sqlStore) Save(ctx context.Context, threadID string, data []byte, expected int) (int, error) {
	if threadID == "" {
		return 0, ErrEmptyThreadID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int
	err = tx.QueryRowContext(ctx, s.d.selectVersion, threadID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read version: %w", err)
	}
	if expected != AnyVersion && expected != current {
		return 0, ErrVersionConflict
	}

	next := current + 1
	now := s.d.encodeTime(time.Now().UTC())
	var res sql.Result
	if current == 0 {
		res, err = tx.ExecContext(ctx, s.d.insert, threadID, next, now, data)
	} else {
		res, err = tx.ExecContext(ctx, s.d.update, next, now, data, threadID, current)
	}
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save: %w", err)
	}
	return next, nil
}

func (s *sqlStore) Load(ctx context.Context, threadID string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Snapshot{}, ErrStoreClosed
	}

	snap := Snapshot{ThreadID: threadID}
	var updated any
	err := s.db.QueryRowContext(ctx, s.d.load, threadID).Scan(&snap.Version, &updated, &snap.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if snap.UpdatedAt, err = s.d.scanTime(updated); err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

func (s *sqlStore) Delete(ctx context.Context, threadID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, s.d.remove, threadID)
	if err != nil {
		return false, fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete snapshot: %w", err)
	}
	return n > 0, nil
}

func (s *sqlStore) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, s.d.list)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		var info Info
		var updated any
		if err := rows.Scan(&info.ThreadID, &info.Version, &updated, &info.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot info: %w", err)
		}
		if info.UpdatedAt, err = s.d.scanTime(updated); err != nil {
			return nil, fmt.Errorf("scan snapshot info: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}

func (s *sqlStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
