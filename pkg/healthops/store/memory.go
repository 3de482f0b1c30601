package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in a map. Data is lost when the process
// exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]Snapshot
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Snapshot)}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, threadID string, data []byte, expected int) (int, error) {
	if threadID == "" {
		return 0, ErrEmptyThreadID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	current := m.data[threadID].Version
	if expected != AnyVersion && expected != current {
		return 0, ErrVersionConflict
	}

	m.data[threadID] = Snapshot{
		ThreadID:  threadID,
		Version:   current + 1,
		UpdatedAt: time.Now().UTC(),
		Data:      append([]byte(nil), data...),
	}
	return current + 1, nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, threadID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Snapshot{}, ErrStoreClosed
	}

	snap, ok := m.data[threadID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	snap.Data = append([]byte(nil), snap.Data...)
	return snap, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, threadID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrStoreClosed
	}

	_, ok := m.data[threadID]
	delete(m.data, threadID)
	return ok, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.data))
	for id, snap := range m.data {
		infos = append(infos, Info{
			ThreadID:  id,
			Version:   snap.Version,
			UpdatedAt: snap.UpdatedAt,
			Size:      int64(len(snap.Data)),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ThreadID < infos[j].ThreadID
	})
	return infos, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored threads.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
