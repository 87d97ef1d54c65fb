package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Apply defaults
	ApplyDefaults(&cfg)

	// Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention BALLAST_SECTION_FIELD (e.g., BALLAST_SELECTION_STRATEGY).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	// First load from file (this already applies defaults)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format BALLAST_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Credential overrides
	if val := os.Getenv("BALLAST_CREDENTIALS_POOL_NAME"); val != "" {
		cfg.Credentials.PoolName = val
	}
	if val := os.Getenv("BALLAST_CREDENTIALS_KEYS"); val != "" {
		// Comma-separated list of credentials
		var keys []string
		for _, key := range strings.Split(val, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
		if len(keys) > 0 {
			cfg.Credentials.Keys = keys
		}
	}
	if val := os.Getenv("BALLAST_CREDENTIALS_KEY_FILE"); val != "" {
		cfg.Credentials.KeyFile = val
	}
	if val := os.Getenv("BALLAST_CREDENTIALS_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Credentials.Watch = b
		}
	}
	if val := os.Getenv("BALLAST_CREDENTIALS_WATCH_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Credentials.WatchDebounce = d
		}
	}

	// Quota overrides
	if val := os.Getenv("BALLAST_QUOTA_REQUESTS_PER_MINUTE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Quota.RequestsPerMinute = i
		}
	}
	if val := os.Getenv("BALLAST_QUOTA_REQUESTS_PER_HOUR"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Quota.RequestsPerHour = i
		}
	}
	if val := os.Getenv("BALLAST_QUOTA_BYTES_PER_MINUTE"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Quota.BytesPerMinute = i
		}
	}
	if val := os.Getenv("BALLAST_QUOTA_MAX_CONCURRENT_UPLOADS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Quota.MaxConcurrentUploads = i
		}
	}

	// Selection overrides
	if val := os.Getenv("BALLAST_SELECTION_STRATEGY"); val != "" {
		cfg.Selection.Strategy = val
	}

	// Retry overrides
	if val := os.Getenv("BALLAST_RETRY_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Retry.MaxRetries = i
		}
	}
	if val := os.Getenv("BALLAST_RETRY_BASE_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Retry.BaseDelay = d
		}
	}
	if val := os.Getenv("BALLAST_RETRY_MAX_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Retry.MaxDelay = d
		}
	}
	if val := os.Getenv("BALLAST_RETRY_MULTIPLIER"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Retry.Multiplier = f
		}
	}
	if val := os.Getenv("BALLAST_RETRY_JITTER_FACTOR"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Retry.JitterFactor = f
		}
	}
	if val := os.Getenv("BALLAST_RETRY_ON_NETWORK_ERROR"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Retry.RetryOnNetworkError = b
		}
	}

	// Cache overrides
	if val := os.Getenv("BALLAST_CACHE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Cache.Enabled = b
		}
	}
	if val := os.Getenv("BALLAST_CACHE_MAX_ENTRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Cache.MaxEntries = i
		}
	}
	if val := os.Getenv("BALLAST_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if val := os.Getenv("BALLAST_CACHE_CACHE_ERRORS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Cache.CacheErrors = b
		}
	}
	if val := os.Getenv("BALLAST_CACHE_MAX_RESPONSE_SIZE"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Cache.MaxResponseSize = i
		}
	}
	if val := os.Getenv("BALLAST_CACHE_PRUNE_SCHEDULE"); val != "" {
		cfg.Cache.PruneSchedule = val
	}

	// Storage overrides
	if val := os.Getenv("BALLAST_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("BALLAST_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Storage.SQLite.Path = val
	}
	if val := os.Getenv("BALLAST_STORAGE_SQLITE_CHECKPOINT_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.SQLite.CheckpointInterval = d
		}
	}
	if val := os.Getenv("BALLAST_STORAGE_SQLITE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.SQLite.BusyTimeout = d
		}
	}

	// Ledger overrides
	if val := os.Getenv("BALLAST_LEDGER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Ledger.Enabled = b
		}
	}
	if val := os.Getenv("BALLAST_LEDGER_PATH"); val != "" {
		cfg.Ledger.Path = val
	}
	if val := os.Getenv("BALLAST_LEDGER_ASYNC_BUFFER"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Ledger.AsyncBuffer = i
		}
	}
	if val := os.Getenv("BALLAST_LEDGER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ledger.WriteTimeout = d
		}
	}
	if val := os.Getenv("BALLAST_LEDGER_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Ledger.Retention.RetentionDays = i
		}
	}
	if val := os.Getenv("BALLAST_LEDGER_RETENTION_MAX_RECORDS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Ledger.Retention.MaxRecords = i
		}
	}
	if val := os.Getenv("BALLAST_LEDGER_RETENTION_PRUNE_SCHEDULE"); val != "" {
		cfg.Ledger.Retention.PruneSchedule = val
	}
	if val := os.Getenv("BALLAST_LEDGER_RETENTION_ARCHIVE_BEFORE_DELETE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Ledger.Retention.ArchiveBeforeDelete = b
		}
	}
	if val := os.Getenv("BALLAST_LEDGER_RETENTION_ARCHIVE_PATH"); val != "" {
		cfg.Ledger.Retention.ArchivePath = val
	}

	// Metrics overrides
	if val := os.Getenv("BALLAST_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}

	// Logging overrides
	if val := os.Getenv("BALLAST_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("BALLAST_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := os.Getenv("BALLAST_LOGGING_ADD_SOURCE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Logging.AddSource = b
		}
	}
}

// LoadKeyFile reads credentials from a file containing one key per line.
// Blank lines and lines starting with '#' are skipped; surrounding
// whitespace is trimmed from each key.
func LoadKeyFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", path, err)
	}

	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, line)
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("key file %q contains no credentials", path)
	}

	return keys, nil
}

// ResolveKeys returns the credential list for the pool. Inline keys take
// precedence; when none are configured the key file is read instead.
func (c *Config) ResolveKeys() ([]string, error) {
	if len(c.Credentials.Keys) > 0 {
		return append([]string(nil), c.Credentials.Keys...), nil
	}
	if c.Credentials.KeyFile != "" {
		return LoadKeyFile(c.Credentials.KeyFile)
	}
	return nil, fmt.Errorf("no credentials configured: set credentials.keys or credentials.key_file")
}
