// Package cache provides a bounded TTL+LRU store for remote API responses.
//
// # Overview
//
// The cache avoids repeating identical generative-AI calls within a validity
// window. Keys are content fingerprints (see pkg/fingerprint); values are any
// JSON-serializable response. Three bounds apply:
//
//   - MaxEntries: capacity; the least-recently-used entry is evicted first.
//   - TTL: entries expire lazily on read and eagerly via PruneExpired.
//   - MaxResponseSize: oversized serialized entries are never stored.
//
// The cache never returns errors. Serialization and deserialization failures
// degrade silently to a cache miss, visible only through statistics and
// metrics. A policy with MaxEntries or TTL of zero disables the cache
// entirely: every read misses and every write is a no-op.
//
// # Thread Safety
//
// All operations serialize through a single mutex, so interleaved writers
// can never corrupt the recency ordering or tear the size accounting.
//
// # Maintenance
//
// A Janitor runs PruneExpired on a cron schedule for deployments that want
// expired entries reclaimed eagerly rather than on next read.
package cache
