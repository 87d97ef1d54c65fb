package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	var cfg Config
	ApplyDefaults(&cfg)

	// Add a default credential for tests
	cfg.Credentials.Keys = []string{"test-key"}

	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithKeys sets the inline credential list.
func (b *ConfigBuilder) WithKeys(keys ...string) *ConfigBuilder {
	b.cfg.Credentials.Keys = keys
	return b
}

// WithKeyFile sets the credential key file path and clears inline keys so
// the file takes effect.
func (b *ConfigBuilder) WithKeyFile(path string) *ConfigBuilder {
	b.cfg.Credentials.Keys = nil
	b.cfg.Credentials.KeyFile = path
	return b
}

// WithPoolName sets the pool name.
func (b *ConfigBuilder) WithPoolName(name string) *ConfigBuilder {
	b.cfg.Credentials.PoolName = name
	return b
}

// WithWatch enables key file watching.
func (b *ConfigBuilder) WithWatch(debounce time.Duration) *ConfigBuilder {
	b.cfg.Credentials.Watch = true
	b.cfg.Credentials.WatchDebounce = debounce
	return b
}

// WithQuota sets the per-credential quota budgets.
func (b *ConfigBuilder) WithQuota(quota QuotaConfig) *ConfigBuilder {
	b.cfg.Quota = quota
	return b
}

// WithStrategy sets the selection strategy.
func (b *ConfigBuilder) WithStrategy(strategy string) *ConfigBuilder {
	b.cfg.Selection.Strategy = strategy
	return b
}

// WithRetry sets the retry section.
func (b *ConfigBuilder) WithRetry(retry RetryConfig) *ConfigBuilder {
	b.cfg.Retry = retry
	return b
}

// WithCacheEnabled sets whether response caching is enabled.
func (b *ConfigBuilder) WithCacheEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Cache.Enabled = enabled
	return b
}

// WithStorageBackend sets the storage backend.
func (b *ConfigBuilder) WithStorageBackend(backend string) *ConfigBuilder {
	b.cfg.Storage.Backend = backend
	return b
}

// WithSQLitePath sets the SQLite database path and selects the SQLite backend.
func (b *ConfigBuilder) WithSQLitePath(path string) *ConfigBuilder {
	b.cfg.Storage.Backend = "sqlite"
	b.cfg.Storage.SQLite.Path = path
	return b
}

// WithLedger enables the attempt ledger at the given database path.
func (b *ConfigBuilder) WithLedger(path string) *ConfigBuilder {
	b.cfg.Ledger.Enabled = true
	b.cfg.Ledger.Path = path
	return b
}

// WithRetention sets the ledger retention subsection.
func (b *ConfigBuilder) WithRetention(retention RetentionConfig) *ConfigBuilder {
	b.cfg.Ledger.Retention = retention
	return b
}

// WithMetricsEnabled sets whether metrics collectors are attached.
func (b *ConfigBuilder) WithMetricsEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Metrics.Enabled = enabled
	return b
}

// WithLogging sets the logging level and format.
func (b *ConfigBuilder) WithLogging(level, format string) *ConfigBuilder {
	b.cfg.Logging.Level = level
	b.cfg.Logging.Format = format
	return b
}

// MinimalConfig returns a minimal valid configuration for testing.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}
