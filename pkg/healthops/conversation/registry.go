// Package conversation keeps the latest state of every conversation
// thread in a store.Store.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/randalmurphal/healthops/pkg/healthops/state"
	"github.com/randalmurphal/healthops/pkg/healthops/store"
)

// Registry maps thread ids to states. GetOrCreate remembers the version it
// read so that the following Put fails with store.ErrVersionConflict when
// another writer got there first. Get and History are plain reads and never
// touch the remembered versions.
type Registry struct {
	store store.Store

	mu       sync.Mutex
	versions map[string]int
}

// NewRegistry returns a registry over s.
func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s, versions: make(map[string]int)}
}

// Get returns the stored state for threadID.
func (r *Registry) Get(ctx context.Context, threadID string) (state.State, bool, error) {
	s, _, ok, err := r.load(ctx, threadID)
	return s, ok, err
}

// GetOrCreate returns the stored state, or a fresh default state when the
// thread is unknown. A fresh state is not stored until Put.
func (r *Registry) GetOrCreate(ctx context.Context, threadID string) (state.State, error) {
	s, version, ok, err := r.load(ctx, threadID)
	if err != nil {
		return state.State{}, err
	}
	if !ok {
		s = state.New(threadID)
	}
	r.remember(threadID, version)
	return s, nil
}

func (r *Registry) load(ctx context.Context, threadID string) (state.State, int, bool, error) {
	snap, err := r.store.Load(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return state.State{}, 0, false, nil
	}
	if err != nil {
		return state.State{}, 0, false, err
	}
	s, err := decode(snap.Data)
	if err != nil {
		return state.State{}, 0, false, err
	}
	return s, snap.Version, true, nil
}

// Put stores s under its thread id, expecting the version the last
// GetOrCreate saw. Without one it overwrites whatever is stored.
func (r *Registry) Put(ctx context.Context, s state.State) error {
	data, err := encode(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	r.mu.Lock()
	expected, ok := r.versions[s.ThreadID]
	r.mu.Unlock()
	if !ok {
		expected = store.AnyVersion
	}

	v, err := r.store.Save(ctx, s.ThreadID, data, expected)
	if err != nil {
		return err
	}
	r.remember(s.ThreadID, v)
	return nil
}

// Reset discards the thread's stored state and returns the fresh default
// state a new turn would start from. existed reports whether anything was
// stored.
func (r *Registry) Reset(ctx context.Context, threadID string) (fresh state.State, existed bool, err error) {
	existed, err = r.store.Delete(ctx, threadID)
	if err != nil {
		return state.State{}, false, err
	}
	r.forget(threadID)
	return state.New(threadID), existed, nil
}

// History returns the thread's messages, or an empty slice for an
// unknown thread.
func (r *Registry) History(ctx context.Context, threadID string) ([]state.Message, error) {
	s, ok, err := r.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []state.Message{}, nil
	}
	return s.Messages, nil
}

// Threads lists stored thread ids in order.
func (r *Registry) Threads(ctx context.Context) ([]string, error) {
	infos, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ThreadID)
	}
	return ids, nil
}

// Close closes the underlying store.
func (r *Registry) Close() error {
	return r.store.Close()
}

func (r *Registry) remember(threadID string, version int) {
	r.mu.Lock()
	r.versions[threadID] = version
	r.mu.Unlock()
}

func (r *Registry) forget(threadID string) {
	r.mu.Lock()
	delete(r.versions, threadID)
	r.mu.Unlock()
}

// tracked reports how many threads have a remembered version.
func (r *Registry) tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.versions)
}
