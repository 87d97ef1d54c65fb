package storage

// SchemaVersion is the current ledger schema version. Opening a database
// with a different version fails rather than migrating silently.
const SchemaVersion = 1

// Schema creates the attempt ledger tables. seq preserves append order —
// chain verification walks it ascending — and timestamps are stored as Unix
// nanoseconds so records round-trip through the chain hash exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS attempt_records (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	request_id TEXT,
	pool_name TEXT NOT NULL,
	key_id TEXT,
	request_hash TEXT,
	attempts INTEGER NOT NULL,
	status_code INTEGER,
	outcome TEXT NOT NULL,
	error TEXT,
	error_kind TEXT,
	bytes_uploaded INTEGER NOT NULL DEFAULT 0,
	total_delay_ns INTEGER NOT NULL DEFAULT 0,
	started_at_ns INTEGER NOT NULL,
	completed_at_ns INTEGER NOT NULL,
	recorded_at_ns INTEGER NOT NULL,
	prev_hash TEXT NOT NULL,
	chain_hash TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempt_records_recorded_at ON attempt_records(recorded_at_ns);
CREATE INDEX IF NOT EXISTS idx_attempt_records_pool ON attempt_records(pool_name);
CREATE INDEX IF NOT EXISTS idx_attempt_records_key ON attempt_records(key_id);
CREATE INDEX IF NOT EXISTS idx_attempt_records_outcome ON attempt_records(outcome);
`
