package config

import (
	"strings"
	"testing"
)

// fieldErrors collects the Field values from a validation result for
// membership checks.
func fieldErrors(t *testing.T, err error) map[string]bool {
	t.Helper()

	if err == nil {
		t.Fatal("expected a validation error")
	}
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}

	fields := make(map[string]bool, len(verr.Errors))
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	return fields
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := MinimalConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := NewTestConfig().WithKeys().Build()

	fields := fieldErrors(t, Validate(cfg))
	if !fields["credentials"] {
		t.Errorf("expected error on credentials, got fields %v", fields)
	}
}

func TestValidate_BlankInlineKey(t *testing.T) {
	cfg := NewTestConfig().WithKeys("good-key", "   ").Build()

	fields := fieldErrors(t, Validate(cfg))
	if !fields["credentials.keys[1]"] {
		t.Errorf("expected error on credentials.keys[1], got fields %v", fields)
	}
}

func TestValidate_WatchRequiresKeyFile(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Credentials.Watch = true

	fields := fieldErrors(t, Validate(cfg))
	if !fields["credentials.watch"] {
		t.Errorf("expected error on credentials.watch, got fields %v", fields)
	}
}

func TestValidate_NegativeQuotaCollectsAllProblems(t *testing.T) {
	cfg := NewTestConfig().WithQuota(QuotaConfig{
		RequestsPerMinute:    -1,
		RequestsPerHour:      -1,
		BytesPerMinute:       -1,
		MaxConcurrentUploads: -1,
	}).Build()

	fields := fieldErrors(t, Validate(cfg))
	for _, want := range []string{
		"quota.requests_per_minute",
		"quota.requests_per_hour",
		"quota.bytes_per_minute",
		"quota.max_concurrent_uploads",
	} {
		if !fields[want] {
			t.Errorf("expected error on %s, got fields %v", want, fields)
		}
	}
}

func TestValidate_MinuteQuotaCannotExceedHourQuota(t *testing.T) {
	cfg := NewTestConfig().WithQuota(QuotaConfig{
		RequestsPerMinute: 100,
		RequestsPerHour:   50,
	}).Build()

	fields := fieldErrors(t, Validate(cfg))
	if !fields["quota.requests_per_minute"] {
		t.Errorf("expected error on quota.requests_per_minute, got fields %v", fields)
	}
}

func TestValidate_InvalidStrategy(t *testing.T) {
	cfg := NewTestConfig().WithStrategy("fastest").Build()

	fields := fieldErrors(t, Validate(cfg))
	if !fields["selection.strategy"] {
		t.Errorf("expected error on selection.strategy, got fields %v", fields)
	}
}

func TestValidate_RetryBounds(t *testing.T) {
	cfg := NewTestConfig().WithRetry(RetryConfig{
		MaxRetries:   11,
		BaseDelay:    DefaultRetryBaseDelay,
		MaxDelay:     DefaultRetryMaxDelay,
		Multiplier:   0.5,
		JitterFactor: 1.5,
	}).Build()

	fields := fieldErrors(t, Validate(cfg))
	for _, want := range []string{
		"retry.max_retries",
		"retry.multiplier",
		"retry.jitter_factor",
	} {
		if !fields[want] {
			t.Errorf("expected error on %s, got fields %v", want, fields)
		}
	}
}

func TestValidate_BaseDelayAboveMaxDelay(t *testing.T) {
	cfg := NewTestConfig().WithRetry(RetryConfig{
		MaxRetries:   3,
		BaseDelay:    DefaultRetryMaxDelay,
		MaxDelay:     DefaultRetryBaseDelay,
		Multiplier:   2.0,
		JitterFactor: 0.25,
	}).Build()

	fields := fieldErrors(t, Validate(cfg))
	if !fields["retry.max_delay"] {
		t.Errorf("expected error on retry.max_delay, got fields %v", fields)
	}
}

func TestValidate_InvalidStatusCode(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Retry.RetryableStatusCodes = []int{429, 99, 600}

	fields := fieldErrors(t, Validate(cfg))
	if !fields["retry.retryable_status_codes[1]"] {
		t.Errorf("expected error on retry.retryable_status_codes[1], got fields %v", fields)
	}
	if !fields["retry.retryable_status_codes[2]"] {
		t.Errorf("expected error on retry.retryable_status_codes[2], got fields %v", fields)
	}
}

func TestValidate_DisabledCacheSkipsValidation(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Cache.Enabled = false
	cfg.Cache.MaxEntries = -1
	cfg.Cache.PruneSchedule = "not a schedule"

	if err := Validate(cfg); err != nil {
		t.Errorf("expected disabled cache to skip validation, got error: %v", err)
	}
}

func TestValidate_EnabledCacheChecksFields(t *testing.T) {
	cfg := NewTestConfig().WithCacheEnabled(true).Build()
	cfg.Cache.MaxEntries = -1
	cfg.Cache.MaxResponseSize = -1

	fields := fieldErrors(t, Validate(cfg))
	if !fields["cache.max_entries"] {
		t.Errorf("expected error on cache.max_entries, got fields %v", fields)
	}
	if !fields["cache.max_response_size"] {
		t.Errorf("expected error on cache.max_response_size, got fields %v", fields)
	}
}

func TestValidate_InvalidPruneSchedule(t *testing.T) {
	cfg := NewTestConfig().WithCacheEnabled(true).Build()
	cfg.Cache.PruneSchedule = "every five minutes"

	fields := fieldErrors(t, Validate(cfg))
	if !fields["cache.prune_schedule"] {
		t.Errorf("expected error on cache.prune_schedule, got fields %v", fields)
	}
}

func TestValidate_InvalidStorageBackend(t *testing.T) {
	cfg := NewTestConfig().WithStorageBackend("postgres").Build()

	fields := fieldErrors(t, Validate(cfg))
	if !fields["storage.backend"] {
		t.Errorf("expected error on storage.backend, got fields %v", fields)
	}
}

func TestValidate_SQLiteRequiresPath(t *testing.T) {
	cfg := NewTestConfig().WithStorageBackend("sqlite").Build()
	cfg.Storage.SQLite.Path = ""

	fields := fieldErrors(t, Validate(cfg))
	if !fields["storage.sqlite.path"] {
		t.Errorf("expected error on storage.sqlite.path, got fields %v", fields)
	}
}

func TestValidate_DisabledLedgerSkipsValidation(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Ledger.Enabled = false
	cfg.Ledger.Path = ""
	cfg.Ledger.Retention.RetentionDays = -1

	if err := Validate(cfg); err != nil {
		t.Errorf("expected disabled ledger to skip validation, got error: %v", err)
	}
}

func TestValidate_EnabledLedgerRequiresPath(t *testing.T) {
	cfg := NewTestConfig().WithLedger("").Build()

	fields := fieldErrors(t, Validate(cfg))
	if !fields["ledger.path"] {
		t.Errorf("expected error on ledger.path, got fields %v", fields)
	}
}

func TestValidate_LedgerRetentionBounds(t *testing.T) {
	cfg := NewTestConfig().WithLedger("data/ledger.db").WithRetention(RetentionConfig{
		RetentionDays: -1,
		MaxRecords:    -1,
		PruneSchedule: "not a schedule",
	}).Build()

	fields := fieldErrors(t, Validate(cfg))
	for _, want := range []string{
		"ledger.retention.retention_days",
		"ledger.retention.max_records",
		"ledger.retention.prune_schedule",
	} {
		if !fields[want] {
			t.Errorf("expected error on %s, got fields %v", want, fields)
		}
	}
}

func TestValidate_LedgerArchiveRequiresPath(t *testing.T) {
	cfg := NewTestConfig().WithLedger("data/ledger.db").WithRetention(RetentionConfig{
		ArchiveBeforeDelete: true,
	}).Build()

	fields := fieldErrors(t, Validate(cfg))
	if !fields["ledger.retention.archive_path"] {
		t.Errorf("expected error on ledger.retention.archive_path, got fields %v", fields)
	}
}

func TestValidate_InvalidLoggingLevel(t *testing.T) {
	cfg := NewTestConfig().WithLogging("verbose", "json").Build()

	fields := fieldErrors(t, Validate(cfg))
	if !fields["logging.level"] {
		t.Errorf("expected error on logging.level, got fields %v", fields)
	}
}

func TestValidate_InvalidLoggingFormat(t *testing.T) {
	cfg := NewTestConfig().WithLogging("info", "xml").Build()

	fields := fieldErrors(t, Validate(cfg))
	if !fields["logging.format"] {
		t.Errorf("expected error on logging.format, got fields %v", fields)
	}
}

func TestFieldError_Error(t *testing.T) {
	fe := FieldError{Field: "retry.multiplier", Message: "multiplier must be at least 1.0"}

	want := "retry.multiplier: multiplier must be at least 1.0"
	if fe.Error() != want {
		t.Errorf("expected %q, got %q", want, fe.Error())
	}
}

func TestValidationError_SingleError(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "credentials", Message: "at least one credential source is required (keys or key_file)"},
	}}

	msg := err.Error()
	if !strings.Contains(msg, "credentials:") {
		t.Errorf("expected message to name the field, got %q", msg)
	}
	if strings.Contains(msg, "errors:") {
		t.Errorf("expected single-error format, got %q", msg)
	}
}

func TestValidationError_MultipleErrors(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "credentials", Message: "at least one credential source is required (keys or key_file)"},
		{Field: "selection.strategy", Message: "strategy is required"},
	}}

	msg := err.Error()
	if !strings.Contains(msg, "2 errors") {
		t.Errorf("expected message to report the error count, got %q", msg)
	}
	if !strings.Contains(msg, "selection.strategy") {
		t.Errorf("expected message to list each field, got %q", msg)
	}
}

func TestValidationError_Empty(t *testing.T) {
	err := ValidationError{}

	if err.Error() != "configuration validation failed" {
		t.Errorf("expected generic message, got %q", err.Error())
	}
}
