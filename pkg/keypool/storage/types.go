package storage

import (
	"context"
	"time"
)

// Backend defines the interface for usage snapshot persistence.
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Save persists the snapshot, replacing any earlier snapshot for the
	// same pool. Returns error on failure.
	Save(ctx context.Context, snap *UsageSnapshot) error

	// Load retrieves the latest snapshot for a pool.
	// Returns nil if no snapshot exists. Returns error on system failure.
	Load(ctx context.Context, pool string) (*UsageSnapshot, error)

	// Delete removes the snapshot for a pool.
	// Returns error on failure. No-op if no snapshot exists.
	Delete(ctx context.Context, pool string) error

	// ListPools returns the names of all pools with a stored snapshot.
	// Returns an empty slice if none exist. Returns error on failure.
	ListPools(ctx context.Context) ([]string, error)

	// Close releases any resources held by the backend.
	// The backend should not be used after calling Close.
	Close() error
}

// UsageSnapshot is the persisted usage state for one pool. A snapshot
// carries only durable counters; quota window state is ephemeral and never
// stored.
type UsageSnapshot struct {
	// PoolName identifies the pool this snapshot belongs to.
	PoolName string `json:"pool_name"`

	// SnapshotID uniquely identifies this capture.
	SnapshotID string `json:"snapshot_id"`

	// TakenAt is when the snapshot was captured.
	TakenAt time.Time `json:"taken_at"`

	// Keys holds one record per credential, in pool order.
	Keys []KeySnapshot `json:"keys"`
}

// KeySnapshot is the persisted usage record for one credential.
type KeySnapshot struct {
	// KeyID is the redacted credential identity, never the raw key.
	KeyID string `json:"key_id"`

	// UsageCount is the lifetime successful-request count.
	UsageCount uint64 `json:"usage_count"`

	// TotalBytesUploaded is the lifetime uploaded byte count.
	TotalBytesUploaded int64 `json:"total_bytes_uploaded"`

	// Errors is the cumulative error count.
	Errors int `json:"errors"`

	// Disabled reports whether the credential was circuit-broken when the
	// snapshot was taken.
	Disabled bool `json:"disabled"`

	// LastUsedAt is when the credential last completed a successful
	// request, or the zero time if never.
	LastUsedAt time.Time `json:"last_used_at"`
}
