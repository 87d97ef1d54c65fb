// Package storage persists the attempt ledger. SQLiteStorage is the durable
// backend (WAL journal, busy-timeout retries, a monotonic seq column that
// preserves chain order); MemoryStorage backs tests and short-lived tooling.
// Both implement ledger.Storage.
package storage
