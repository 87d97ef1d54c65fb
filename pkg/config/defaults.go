package config

import "time"

// Default values for configuration fields.
const (
	// Credential defaults
	DefaultPoolName      = "default"
	DefaultWatchDebounce = 100 * time.Millisecond

	// Selection defaults
	DefaultSelectionStrategy = "round_robin"

	// Retry defaults
	DefaultRetryMaxRetries   = 3
	DefaultRetryBaseDelay    = 1 * time.Second
	DefaultRetryMaxDelay     = 30 * time.Second
	DefaultRetryMultiplier   = 2.0
	DefaultRetryJitterFactor = 0.25

	// Cache defaults
	DefaultCacheMaxEntries      = 100
	DefaultCacheTTL             = 5 * time.Minute
	DefaultCacheMaxResponseSize = int64(1048576) // 1MB
	DefaultCachePruneSchedule   = "*/5 * * * *"

	// Storage defaults
	DefaultStorageBackend           = "memory"
	DefaultSQLitePath               = "data/ballast.db"
	DefaultSQLiteCheckpointInterval = 5 * time.Minute
	DefaultSQLiteBusyTimeout        = 5 * time.Second

	// Ledger defaults
	DefaultLedgerPath          = "data/ledger.db"
	DefaultLedgerAsyncBuffer   = 1000
	DefaultLedgerWriteTimeout  = 5 * time.Second
	DefaultLedgerPruneSchedule = "0 3 * * *"

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
)

// DefaultRetryableStatusCodes is the default set of HTTP status codes
// treated as transient.
var DefaultRetryableStatusCodes = []int{429, 500, 502, 503, 504}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Credential defaults
	if cfg.Credentials.PoolName == "" {
		cfg.Credentials.PoolName = DefaultPoolName
	}
	if cfg.Credentials.WatchDebounce == 0 {
		cfg.Credentials.WatchDebounce = DefaultWatchDebounce
	}

	// Quota defaults are zero values (unlimited), which is correct

	// Selection defaults
	if cfg.Selection.Strategy == "" {
		cfg.Selection.Strategy = DefaultSelectionStrategy
	}

	// Retry defaults
	applyRetryDefaults(cfg)

	// Cache defaults
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.MaxResponseSize == 0 {
		cfg.Cache.MaxResponseSize = DefaultCacheMaxResponseSize
	}
	if cfg.Cache.PruneSchedule == "" {
		cfg.Cache.PruneSchedule = DefaultCachePruneSchedule
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Storage.SQLite.CheckpointInterval == 0 {
		cfg.Storage.SQLite.CheckpointInterval = DefaultSQLiteCheckpointInterval
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	// Ledger defaults; retention day and record caps default to zero,
	// meaning the corresponding pruning phase stays off
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Ledger.AsyncBuffer == 0 {
		cfg.Ledger.AsyncBuffer = DefaultLedgerAsyncBuffer
	}
	if cfg.Ledger.WriteTimeout == 0 {
		cfg.Ledger.WriteTimeout = DefaultLedgerWriteTimeout
	}
	if cfg.Ledger.Retention.PruneSchedule == "" {
		cfg.Ledger.Retention.PruneSchedule = DefaultLedgerPruneSchedule
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	// Metrics defaults are false (zero values), which is correct
}

// applyRetryDefaults applies default values to retry configuration.
func applyRetryDefaults(cfg *Config) {
	r := &cfg.Retry

	// RetryOnNetworkError defaults to true, but boolean zero values are
	// indistinguishable from an explicit false. Enable it only when the
	// whole section was left unset; a user who configured any retry
	// field keeps whatever they wrote.
	hasAnyConfig := r.MaxRetries > 0 ||
		r.BaseDelay > 0 ||
		r.MaxDelay > 0 ||
		r.Multiplier > 0 ||
		r.JitterFactor > 0 ||
		len(r.RetryableStatusCodes) > 0 ||
		r.RetryOnNetworkError

	if !hasAnyConfig {
		r.RetryOnNetworkError = true
	}

	if r.MaxRetries == 0 {
		r.MaxRetries = DefaultRetryMaxRetries
	}
	if r.BaseDelay == 0 {
		r.BaseDelay = DefaultRetryBaseDelay
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = DefaultRetryMaxDelay
	}
	if r.Multiplier == 0 {
		r.Multiplier = DefaultRetryMultiplier
	}
	if r.JitterFactor == 0 {
		r.JitterFactor = DefaultRetryJitterFactor
	}
	if len(r.RetryableStatusCodes) == 0 {
		r.RetryableStatusCodes = append([]int(nil), DefaultRetryableStatusCodes...)
	}
}
