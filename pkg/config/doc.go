// Package config provides configuration management for Ballast.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides, and translates configuration
// sections into constructed components: the credential pool, retry executor,
// response cache, usage snapshot backend, and attempt ledger.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention BALLAST_SECTION_FIELD.
// For example:
//
//   - BALLAST_CREDENTIALS_KEY_FILE overrides credentials.key_file
//   - BALLAST_SELECTION_STRATEGY overrides selection.strategy
//   - BALLAST_RETRY_MAX_RETRIES overrides retry.max_retries
//
// Environment variables always take precedence over file-based configuration.
// BALLAST_CREDENTIALS_KEYS accepts a comma-separated credential list, which
// keeps secrets out of configuration files.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Building Components
//
// The Build methods map validated configuration onto constructed components:
//
//	logger, err := cfg.BuildLogger()
//	pool, err := cfg.BuildPool(logger, registry)
//	exec, err := cfg.BuildExecutor(logger, registry)
//	rc := cfg.BuildCache(logger, registry)
//	backend, err := cfg.BuildBackend()
//	store, err := cfg.BuildLedgerStorage()
//	rec, err := cfg.BuildRecorder(store, logger)
//
// The registry argument is only consulted when metrics.enabled is true.
//
// # Key File Hot Reload
//
// When credentials.watch is set, a KeyFileWatcher can deliver re-read key
// lists as the key file changes:
//
//	w, err := config.NewKeyFileWatcher(cfg.Credentials.KeyFile, cfg.Credentials.WatchDebounce, logger)
//	go w.Watch(ctx, func(keys []string) error {
//	    // construct a replacement pool from the new keys
//	    return nil
//	})
//
// Pool membership is fixed at construction, so the callback builds a
// replacement pool rather than mutating the running one.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., at least one credential source)
//   - Range validation (e.g., jitter factor must be 0.0-1.0)
//   - Format validation (e.g., parseable cron schedules)
//   - Logical validation (e.g., watch requires a key file)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - credentials: at least one credential source is required (keys or key_file)
//	  - selection.strategy: invalid strategy "fastest": must be 'round_robin' or 'least_used'
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	credentials:
//	  key_file: "/etc/ballast/keys.txt"
//
//	quota:
//	  requests_per_minute: 60
//	  bytes_per_minute: 104857600
//
//	selection:
//	  strategy: "least_used"
//
//	retry:
//	  max_retries: 3
//	  base_delay: 1s
//	  retry_on_network_error: true
//
//	cache:
//	  enabled: true
//	  max_entries: 200
//	  ttl: 10m
//
//	storage:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/ballast.db"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses read-write
// locks to allow concurrent reads while protecting against concurrent writes during
// reload operations.
package config
