package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "retry.max_delay").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	// Validate credential configuration
	errs = append(errs, validateCredentials(&cfg.Credentials)...)

	// Validate quota configuration
	errs = append(errs, validateQuota(&cfg.Quota)...)

	// Validate selection configuration
	errs = append(errs, validateSelection(&cfg.Selection)...)

	// Validate retry configuration
	errs = append(errs, validateRetry(&cfg.Retry)...)

	// Validate cache configuration
	errs = append(errs, validateCache(&cfg.Cache)...)

	// Validate storage configuration
	errs = append(errs, validateStorage(&cfg.Storage)...)

	// Validate ledger configuration
	errs = append(errs, validateLedger(&cfg.Ledger)...)

	// Validate logging configuration
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateCredentials validates credential configuration.
func validateCredentials(cfg *CredentialsConfig) []FieldError {
	var errs []FieldError

	// At least one credential source must be configured
	if len(cfg.Keys) == 0 && cfg.KeyFile == "" {
		errs = append(errs, FieldError{
			Field:   "credentials",
			Message: "at least one credential source is required (keys or key_file)",
		})
	}

	// Inline keys must be non-blank
	for i, key := range cfg.Keys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("credentials.keys[%d]", i),
				Message: "credential must not be blank",
			})
		}
	}

	// Watch mode requires a key file to watch
	if cfg.Watch && cfg.KeyFile == "" {
		errs = append(errs, FieldError{
			Field:   "credentials.watch",
			Message: "watch requires key_file to be set",
		})
	}

	// Validate debounce interval
	if cfg.WatchDebounce < 0 {
		errs = append(errs, FieldError{
			Field:   "credentials.watch_debounce",
			Message: "watch debounce must be non-negative",
		})
	}

	return errs
}

// validateQuota validates quota configuration.
func validateQuota(cfg *QuotaConfig) []FieldError {
	var errs []FieldError

	if cfg.RequestsPerMinute < 0 {
		errs = append(errs, FieldError{
			Field:   "quota.requests_per_minute",
			Message: "requests per minute must be non-negative",
		})
	}
	if cfg.RequestsPerHour < 0 {
		errs = append(errs, FieldError{
			Field:   "quota.requests_per_hour",
			Message: "requests per hour must be non-negative",
		})
	}
	if cfg.BytesPerMinute < 0 {
		errs = append(errs, FieldError{
			Field:   "quota.bytes_per_minute",
			Message: "bytes per minute must be non-negative",
		})
	}
	if cfg.MaxConcurrentUploads < 0 {
		errs = append(errs, FieldError{
			Field:   "quota.max_concurrent_uploads",
			Message: "max concurrent uploads must be non-negative",
		})
	}

	// The minute window should not allow more than the hour window
	if cfg.RequestsPerMinute > 0 && cfg.RequestsPerHour > 0 &&
		cfg.RequestsPerMinute > cfg.RequestsPerHour {
		errs = append(errs, FieldError{
			Field:   "quota.requests_per_minute",
			Message: "requests per minute cannot exceed requests per hour",
		})
	}

	return errs
}

// validateSelection validates selection configuration.
func validateSelection(cfg *SelectionConfig) []FieldError {
	var errs []FieldError

	validStrategies := map[string]bool{"round_robin": true, "least_used": true}
	if cfg.Strategy == "" {
		errs = append(errs, FieldError{
			Field:   "selection.strategy",
			Message: "strategy is required",
		})
	} else if !validStrategies[cfg.Strategy] {
		errs = append(errs, FieldError{
			Field:   "selection.strategy",
			Message: fmt.Sprintf("invalid strategy %q: must be 'round_robin' or 'least_used'", cfg.Strategy),
		})
	}

	return errs
}

// validateRetry validates retry configuration.
func validateRetry(cfg *RetryConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "retry.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if cfg.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   "retry.max_retries",
			Message: "max retries exceeds reasonable limit (10)",
		})
	}
	if cfg.BaseDelay < 0 {
		errs = append(errs, FieldError{
			Field:   "retry.base_delay",
			Message: "base delay must be non-negative",
		})
	}
	if cfg.MaxDelay < 0 {
		errs = append(errs, FieldError{
			Field:   "retry.max_delay",
			Message: "max delay must be non-negative",
		})
	}
	if cfg.MaxDelay > 0 && cfg.BaseDelay > cfg.MaxDelay {
		errs = append(errs, FieldError{
			Field:   "retry.max_delay",
			Message: "max delay must be at least base delay",
		})
	}
	if cfg.Multiplier < 1.0 {
		errs = append(errs, FieldError{
			Field:   "retry.multiplier",
			Message: "multiplier must be at least 1.0",
		})
	}
	if cfg.JitterFactor < 0.0 || cfg.JitterFactor > 1.0 {
		errs = append(errs, FieldError{
			Field:   "retry.jitter_factor",
			Message: "jitter factor must be between 0.0 and 1.0",
		})
	}
	for i, code := range cfg.RetryableStatusCodes {
		if code < 100 || code > 599 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("retry.retryable_status_codes[%d]", i),
				Message: fmt.Sprintf("invalid HTTP status code %d: must be between 100 and 599", code),
			})
		}
	}

	return errs
}

// validateCache validates cache configuration.
func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	// If the cache is disabled, skip validation
	if !cfg.Enabled {
		return errs
	}

	if cfg.MaxEntries < 0 {
		errs = append(errs, FieldError{
			Field:   "cache.max_entries",
			Message: "max entries must be non-negative",
		})
	}
	if cfg.TTL < 0 {
		errs = append(errs, FieldError{
			Field:   "cache.ttl",
			Message: "ttl must be non-negative",
		})
	}
	if cfg.MaxResponseSize < 0 {
		errs = append(errs, FieldError{
			Field:   "cache.max_response_size",
			Message: "max response size must be non-negative",
		})
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "cache.prune_schedule",
				Message: fmt.Sprintf("invalid cron schedule %q: %v", cfg.PruneSchedule, err),
			})
		}
	}

	return errs
}

// validateStorage validates storage configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	// Validate backend
	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if cfg.Backend == "" {
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: "backend is required",
		})
	} else if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	// Validate backend-specific configuration
	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.CheckpointInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.checkpoint_interval",
				Message: "checkpoint interval must be positive",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.busy_timeout",
				Message: "busy timeout must be positive",
			})
		}
	}

	return errs
}

// validateLedger validates attempt ledger configuration.
func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	// If the ledger is disabled, skip validation
	if !cfg.Enabled {
		return errs
	}

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "ledger.path",
			Message: "path is required when the ledger is enabled",
		})
	}
	if cfg.AsyncBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.async_buffer",
			Message: "async buffer must be non-negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.write_timeout",
			Message: "write timeout must be non-negative",
		})
	}

	if cfg.Retention.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.retention.retention_days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "ledger.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron schedule %q: %v", cfg.Retention.PruneSchedule, err),
			})
		}
	}
	if cfg.Retention.ArchiveBeforeDelete && cfg.Retention.ArchivePath == "" {
		errs = append(errs, FieldError{
			Field:   "ledger.retention.archive_path",
			Message: "archive path is required when archive_before_delete is set",
		})
	}

	return errs
}

// validateLogging validates logging configuration.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Level == "" {
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Level] {
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Format == "" {
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Format] {
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Format),
		})
	}

	return errs
}
