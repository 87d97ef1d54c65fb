// Package storage provides persistence backends for credential usage
// snapshots.
//
// # Overview
//
// The storage package defines the interface for persisting a pool's durable
// usage counters (lifetime usage, error counts, disabled flags) and provides
// two implementations:
//
//   - Memory: Fast in-memory storage (default, no persistence)
//   - SQLite: Lightweight file-based persistence across restarts
//
// Snapshots identify credentials by their redacted key identity; raw
// credentials are never written to storage.
//
// # Usage
//
//	backend, err := storage.NewSQLiteBackend("usage.db")
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	// Persist the pool's counters
//	err = backend.Save(ctx, pool.SnapshotUsage())
//
//	// Restore them on the next start
//	snap, err := backend.Load(ctx, "primary")
//	if snap != nil {
//	    pool.RestoreUsage(snap)
//	}
//
// # Thread Safety
//
// All storage backends are thread-safe and support concurrent access from
// multiple goroutines. Locking is handled internally by each backend.
package storage
