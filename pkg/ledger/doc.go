// Package ledger defines the append-only audit trail of dispatch attempts:
// what the pool, executor, and cache actually did, durable across restarts.
//
// Each AttemptRecord captures one completed dispatch — the pool and
// credential that served it (by sha256 short id, never the raw key), the
// attempt count, the outcome, and timing — and carries a hash chaining it to
// the record before it. ChainHash makes the trail tamper-evident:
// VerifyChain replays the chain and reports the first record whose contents
// or back-link no longer match. Pruned ledgers verify from the oldest
// retained record; the link into the pruned region is trusted as the anchor.
//
// Subpackages divide the pipeline: recorder enqueues and chains records off
// the dispatch path, storage persists them (SQLite or in-memory), retention
// prunes by age and count with optional archives, and export serializes to
// JSON or CSV.
package ledger
