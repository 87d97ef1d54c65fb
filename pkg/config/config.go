package config

import "time"

// Config is the root configuration structure for Ballast.
// It contains all configuration sections for credential management, quota
// enforcement, retry behavior, response caching, usage persistence, and
// observability settings.
type Config struct {
	// Credentials contains the credential sources for the key pool,
	// including inline keys, a key file, and hot-reload settings.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Quota contains per-credential rate and byte budgets enforced by
	// the key pool. Zero values mean unlimited.
	Quota QuotaConfig `yaml:"quota"`

	// Selection contains the credential selection strategy.
	Selection SelectionConfig `yaml:"selection"`

	// Retry contains retry policy settings for transient failures.
	Retry RetryConfig `yaml:"retry"`

	// Cache contains response cache settings including capacity, TTL,
	// and the background prune schedule.
	Cache CacheConfig `yaml:"cache"`

	// Storage contains usage snapshot persistence settings.
	Storage StorageConfig `yaml:"storage"`

	// Ledger contains attempt ledger settings: the hash-chained record of
	// dispatch outcomes.
	Ledger LedgerConfig `yaml:"ledger"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`
}

// CredentialsConfig contains the credential sources for the key pool.
// Keys may be supplied inline, loaded from a file, or both; inline keys
// take precedence when both are present.
type CredentialsConfig struct {
	// PoolName identifies the pool in logs, metric labels, and stored
	// usage snapshots.
	// Default: "default"
	PoolName string `yaml:"pool_name"`

	// Keys is the list of credentials supplied inline. Each entry is an
	// opaque token passed through to the upstream API untouched.
	// Prefer KeyFile or environment overrides for real deployments so
	// credentials stay out of checked-in configuration.
	Keys []string `yaml:"keys"`

	// KeyFile is the path to a file containing one credential per line.
	// Blank lines and lines starting with '#' are skipped. Used only
	// when Keys is empty.
	KeyFile string `yaml:"key_file"`

	// Watch enables hot-reloading of KeyFile. When the file changes,
	// the reload callback receives the re-read key list.
	// Requires KeyFile to be set.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period after a file change before the
	// reload callback fires. Rapid successive writes collapse into one
	// reload.
	// Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// QuotaConfig contains per-credential quota budgets. A zero value for any
// field means that dimension is unlimited.
type QuotaConfig struct {
	// RequestsPerMinute caps successful requests per credential within a
	// rolling one-minute window.
	// Default: 0 (unlimited)
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// RequestsPerHour caps successful requests per credential within a
	// rolling one-hour window.
	// Default: 0 (unlimited)
	RequestsPerHour int `yaml:"requests_per_hour"`

	// BytesPerMinute caps uploaded bytes per credential within the same
	// one-minute window as RequestsPerMinute.
	// Default: 0 (unlimited)
	BytesPerMinute int64 `yaml:"bytes_per_minute"`

	// MaxConcurrentUploads caps in-flight uploads across the whole pool.
	// Default: 0 (unlimited)
	MaxConcurrentUploads int `yaml:"max_concurrent_uploads"`
}

// SelectionConfig contains the credential selection strategy.
type SelectionConfig struct {
	// Strategy selects how the pool picks among usable credentials.
	// Options: "round_robin" (cycle in configured order), "least_used"
	// (smallest lifetime usage count wins). Custom selector functions
	// are available through the keypool API only.
	// Default: "round_robin"
	Strategy string `yaml:"strategy"`
}

// RetryConfig contains retry policy settings for transient failures.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	// An operation runs at most MaxRetries+1 times.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// BaseDelay is the delay before the first retry. Subsequent delays
	// grow by Multiplier per attempt.
	// Default: 1s
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxDelay caps the backoff delay regardless of attempt count.
	// Default: 30s
	MaxDelay time.Duration `yaml:"max_delay"`

	// Multiplier is the exponential growth factor applied per attempt.
	// Must be at least 1.0.
	// Default: 2.0
	Multiplier float64 `yaml:"multiplier"`

	// JitterFactor scales the random spread applied to each delay, as a
	// fraction of the computed backoff. Must be between 0.0 and 1.0.
	// Default: 0.25
	JitterFactor float64 `yaml:"jitter_factor"`

	// RetryableStatusCodes lists the HTTP status codes treated as
	// transient.
	// Default: [429, 500, 502, 503, 504]
	RetryableStatusCodes []int `yaml:"retryable_status_codes"`

	// RetryOnNetworkError enables retrying classified transport faults
	// (timeouts, DNS failures, refused or lost connections).
	// Default: true when the retry section is omitted entirely
	RetryOnNetworkError bool `yaml:"retry_on_network_error"`
}

// CacheConfig contains response cache settings.
type CacheConfig struct {
	// Enabled controls whether response caching is active. When false
	// the cache accepts calls but stores nothing.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// MaxEntries bounds the number of cached entries. Inserting beyond
	// the bound evicts the least-recently-used entry.
	// Default: 100
	MaxEntries int `yaml:"max_entries"`

	// TTL is how long an entry stays valid. Expired entries are removed
	// lazily on read and by the background janitor.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`

	// CacheErrors indicates whether error responses should be cached
	// alongside successes.
	// Default: false
	CacheErrors bool `yaml:"cache_errors"`

	// MaxResponseSize is the largest serialized entry stored, in bytes.
	// Larger responses are silently dropped. 0 means unlimited.
	// Default: 1048576 (1MB)
	MaxResponseSize int64 `yaml:"max_response_size"`

	// PruneSchedule is the cron schedule for the background janitor
	// that removes expired entries.
	// Default: "*/5 * * * *" (every five minutes)
	PruneSchedule string `yaml:"prune_schedule"`
}

// StorageConfig contains usage snapshot persistence settings.
type StorageConfig struct {
	// Backend selects where usage snapshots are stored.
	// Options: "memory" (process-local, lost on restart), "sqlite"
	// (durable single-file database).
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains settings for the SQLite backend.
	// Only used when Backend is "sqlite".
	SQLite SQLiteStorageConfig `yaml:"sqlite"`
}

// SQLiteStorageConfig contains settings for the SQLite storage backend.
type SQLiteStorageConfig struct {
	// Path is the SQLite database file path. Parent directories must
	// exist.
	// Default: "data/ballast.db"
	Path string `yaml:"path"`

	// CheckpointInterval is how often the write-ahead log is
	// checkpointed back into the main database file.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`

	// BusyTimeout is how long a blocked connection waits for a lock
	// before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// LedgerConfig contains attempt ledger settings. The ledger records one
// hash-chained row per dispatched operation for audit and forensics.
type LedgerConfig struct {
	// Enabled controls whether dispatch outcomes are recorded. When false
	// the recorder accepts calls but stores nothing.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file for the ledger. Kept separate from
	// the usage snapshot database so audit data can live on different
	// storage and be pruned independently.
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// AsyncBuffer is the capacity of the write queue between callers and
	// the background writer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds how long a caller blocks when the write queue
	// is full, and how long one storage write may take.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Retention controls pruning of old ledger records.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains ledger retention settings. Zero values disable
// the corresponding pruning phase.
type RetentionConfig struct {
	// RetentionDays removes records older than this many days.
	// Default: 0 (keep forever)
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords caps the ledger size; the oldest records beyond the cap
	// are removed.
	// Default: 0 (unbounded)
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is the cron schedule for background pruning.
	// Default: "0 3 * * *" (daily at 03:00)
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete exports pruned records to a JSON file before
	// they are removed.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory archive files are written to.
	// Required when ArchiveBeforeDelete is set.
	ArchivePath string `yaml:"archive_path"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls whether the builders attach Prometheus
	// collectors to constructed components.
	// Default: false
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes the file and line of the logging call in each
	// record.
	// Default: false
	AddSource bool `yaml:"add_source"`
}
