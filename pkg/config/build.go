package config

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"arclight-ai/ballast/pkg/cache"
	"arclight-ai/ballast/pkg/keypool"
	"arclight-ai/ballast/pkg/keypool/storage"
	"arclight-ai/ballast/pkg/ledger"
	"arclight-ai/ballast/pkg/ledger/recorder"
	"arclight-ai/ballast/pkg/ledger/retention"
	ledgerstorage "arclight-ai/ballast/pkg/ledger/storage"
	"arclight-ai/ballast/pkg/logging"
	"arclight-ai/ballast/pkg/retry"
)

// BuildLogger constructs a slog.Logger from the logging section, writing to
// standard output in the configured format. The logger redacts the
// configured credentials: any raw key that reaches a log record comes out as
// its sha256 short id.
func (c *Config) BuildLogger() (*slog.Logger, error) {
	// Best effort: an unreadable key file is BuildPool's error to report,
	// not a reason to run without a logger. Redact whatever is known.
	keys, err := c.ResolveKeys()
	if err != nil {
		keys = c.Credentials.Keys
	}

	return logging.New(logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		AddSource: c.Logging.AddSource,
		Redactor:  logging.NewRedactor(keys...),
	})
}

// BuildPool constructs the credential pool from the credentials, quota, and
// selection sections. Keys are resolved from inline configuration or the key
// file. A Prometheus registry is only consulted when metrics are enabled;
// pass nil to let the collectors register on a private registry.
func (c *Config) BuildPool(logger *slog.Logger, registry *prometheus.Registry) (*keypool.Pool, error) {
	keys, err := c.ResolveKeys()
	if err != nil {
		return nil, err
	}

	strategy, err := c.selectionStrategy()
	if err != nil {
		return nil, err
	}

	quota := keypool.QuotaPolicy{
		RequestsPerMinute:    c.Quota.RequestsPerMinute,
		RequestsPerHour:      c.Quota.RequestsPerHour,
		BytesPerMinute:       c.Quota.BytesPerMinute,
		MaxConcurrentUploads: c.Quota.MaxConcurrentUploads,
	}

	var metrics *keypool.Metrics
	if c.Metrics.Enabled {
		metrics = keypool.NewMetrics(registry)
	}

	return keypool.New(c.Credentials.PoolName, keys, quota, strategy, logger, metrics)
}

// BuildExecutor constructs the retry executor from the retry section.
func (c *Config) BuildExecutor(logger *slog.Logger, registry *prometheus.Registry) (*retry.Executor, error) {
	policy := retry.Policy{
		MaxRetries:           c.Retry.MaxRetries,
		BaseDelay:            c.Retry.BaseDelay,
		MaxDelay:             c.Retry.MaxDelay,
		Multiplier:           c.Retry.Multiplier,
		JitterFactor:         c.Retry.JitterFactor,
		RetryableStatusCodes: statusCodeSet(c.Retry.RetryableStatusCodes),
		RetryOnNetworkError:  c.Retry.RetryOnNetworkError,
	}

	var metrics *retry.Metrics
	if c.Metrics.Enabled {
		metrics = retry.NewMetrics(registry)
	}

	return retry.NewExecutor(policy, logger, metrics)
}

// BuildCache constructs the response cache from the cache section. When the
// section is disabled the returned cache accepts calls but stores nothing.
func (c *Config) BuildCache(logger *slog.Logger, registry *prometheus.Registry) *cache.ResponseCache {
	var policy cache.Policy
	if c.Cache.Enabled {
		policy = cache.Policy{
			MaxEntries:      c.Cache.MaxEntries,
			TTL:             c.Cache.TTL,
			CacheErrors:     c.Cache.CacheErrors,
			MaxResponseSize: c.Cache.MaxResponseSize,
		}
	}

	var metrics *cache.Metrics
	if c.Metrics.Enabled {
		metrics = cache.NewMetrics(registry)
	}

	return cache.New(c.Credentials.PoolName, policy, logger, metrics)
}

// BuildJanitor constructs the background janitor for a cache built from this
// configuration, using the configured prune schedule.
func (c *Config) BuildJanitor(rc *cache.ResponseCache, logger *slog.Logger) (*cache.Janitor, error) {
	return cache.NewJanitor(rc, c.Cache.PruneSchedule, logger)
}

// BuildBackend constructs the usage snapshot backend from the storage
// section.
func (c *Config) BuildBackend() (storage.Backend, error) {
	switch c.Storage.Backend {
	case "", "memory":
		return storage.NewMemoryBackend(), nil
	case "sqlite":
		return storage.NewSQLiteBackendWithConfig(storage.SQLiteBackendConfig{
			DBPath:             c.Storage.SQLite.Path,
			CheckpointInterval: c.Storage.SQLite.CheckpointInterval,
			BusyTimeout:        c.Storage.SQLite.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
}

// BuildLedgerStorage constructs the attempt ledger store from the ledger
// section. It returns nil without error when the ledger is disabled; the
// recorder builder accepts that and produces an inert recorder.
func (c *Config) BuildLedgerStorage() (ledger.Storage, error) {
	if !c.Ledger.Enabled {
		return nil, nil
	}
	return ledgerstorage.NewSQLiteStorage(ledgerstorage.DefaultSQLiteConfig(c.Ledger.Path))
}

// BuildRecorder constructs the attempt recorder from the ledger section,
// writing to the given store. The caller owns the store and closes it after
// the recorder.
func (c *Config) BuildRecorder(store ledger.Storage, logger *slog.Logger) (*recorder.Recorder, error) {
	return recorder.New(store, recorder.Config{
		Enabled:      c.Ledger.Enabled,
		AsyncBuffer:  c.Ledger.AsyncBuffer,
		WriteTimeout: c.Ledger.WriteTimeout,
	}, logger)
}

// BuildPruner constructs the ledger retention pruner from the retention
// subsection.
func (c *Config) BuildPruner(store ledger.Storage, logger *slog.Logger) (*retention.Pruner, error) {
	return retention.NewPruner(store, retention.Config{
		RetentionDays:       c.Ledger.Retention.RetentionDays,
		MaxRecords:          c.Ledger.Retention.MaxRecords,
		PruneSchedule:       c.Ledger.Retention.PruneSchedule,
		ArchiveBeforeDelete: c.Ledger.Retention.ArchiveBeforeDelete,
		ArchivePath:         c.Ledger.Retention.ArchivePath,
	}, logger)
}

// BuildRetentionScheduler constructs the background scheduler for a pruner
// built from this configuration, using the configured prune schedule.
func (c *Config) BuildRetentionScheduler(p *retention.Pruner, logger *slog.Logger) (*retention.Scheduler, error) {
	return retention.NewScheduler(p, c.Ledger.Retention.PruneSchedule, logger)
}

// selectionStrategy maps the configured strategy name to a pool strategy.
func (c *Config) selectionStrategy() (keypool.SelectionStrategy, error) {
	switch c.Selection.Strategy {
	case "round_robin", "":
		return keypool.RoundRobin(), nil
	case "least_used":
		return keypool.LeastUsed(), nil
	default:
		return keypool.SelectionStrategy{}, fmt.Errorf("unknown selection strategy %q", c.Selection.Strategy)
	}
}

// statusCodeSet converts the configured status code list to the set form the
// retry policy uses. An empty list yields nil so the policy defaults apply.
func statusCodeSet(codes []int) map[int]bool {
	if len(codes) == 0 {
		return nil
	}
	set := make(map[int]bool, len(codes))
	for _, code := range codes {
		set[code] = true
	}
	return set
}
