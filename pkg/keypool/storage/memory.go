package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend implements Backend using in-memory storage.
// This is the default backend and provides fast access with no persistence.
// All data is lost when the process exits.
//
// MemoryBackend is thread-safe and supports concurrent access using
// sync.RWMutex.
type MemoryBackend struct {
	// snapshots maps pool name to its latest snapshot.
	snapshots map[string]*UsageSnapshot

	// mu protects access to the snapshots map.
	mu sync.RWMutex
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		snapshots: make(map[string]*UsageSnapshot),
	}
}

// Save persists the snapshot, replacing any earlier one for the same pool.
// The stored copy is detached from the caller's value.
func (m *MemoryBackend) Save(ctx context.Context, snap *UsageSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snap.PoolName == "" {
		return fmt.Errorf("pool name cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[snap.PoolName] = copySnapshot(snap)
	return nil
}

// Load retrieves the latest snapshot for a pool, or nil if none exists.
func (m *MemoryBackend) Load(ctx context.Context, pool string) (*UsageSnapshot, error) {
	if pool == "" {
		return nil, fmt.Errorf("pool name cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[pool]
	if !ok {
		return nil, nil
	}
	return copySnapshot(snap), nil
}

// Delete removes the snapshot for a pool.
func (m *MemoryBackend) Delete(ctx context.Context, pool string) error {
	if pool == "" {
		return fmt.Errorf("pool name cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.snapshots, pool)
	return nil
}

// ListPools returns the names of all pools with a stored snapshot, sorted.
func (m *MemoryBackend) ListPools(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	pools := make([]string, 0, len(m.snapshots))
	for pool := range m.snapshots {
		pools = append(pools, pool)
	}
	sort.Strings(pools)
	return pools, nil
}

// Close releases the backend. The memory backend holds no external
// resources, so Close only exists to satisfy Backend.
func (m *MemoryBackend) Close() error {
	return nil
}

// copySnapshot returns a deep copy so stored state never aliases caller
// state.
func copySnapshot(snap *UsageSnapshot) *UsageSnapshot {
	out := &UsageSnapshot{
		PoolName:   snap.PoolName,
		SnapshotID: snap.SnapshotID,
		TakenAt:    snap.TakenAt,
	}
	if len(snap.Keys) > 0 {
		out.Keys = make([]KeySnapshot, len(snap.Keys))
		copy(out.Keys, snap.Keys)
	}
	return out
}
