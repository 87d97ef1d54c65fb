package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"arclight-ai/ballast/pkg/cli"
	"arclight-ai/ballast/pkg/config"
)

var validateFlags struct {
	quiet bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply defaults and environment overrides, and
report whether the result is valid.

On success the effective configuration is summarized so defaults and
overrides can be checked at a glance. Raw credentials are never printed.

Exit codes:
  0 - configuration is valid
  2 - configuration is invalid or could not be loaded

Examples:
  # Validate the default config file
  ballast validate

  # Validate a specific file
  ballast validate --config /etc/ballast/config.yaml

  # Validity only, for scripts
  ballast validate --quiet`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVarP(&validateFlags.quiet, "quiet", "q", false, "report validity only, no summary")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ %s is invalid (%d problem(s)):\n", cfgFile, len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Printf("  - %s: %s\n", fe.Field, fe.Message)
			}
			return cli.NewConfigError("", "validation failed")
		}
		return cli.NewConfigError("", fmt.Sprintf("failed to load config %q: %v", cfgFile, err))
	}

	fmt.Printf("✓ %s is valid\n", cfgFile)
	if validateFlags.quiet {
		return nil
	}

	printConfigSummary(cfg)
	return nil
}

func printConfigSummary(cfg *config.Config) {
	fmt.Println()
	fmt.Println("Effective configuration:")

	fmt.Printf("  Pool:      %q, %d inline key(s)", cfg.Credentials.PoolName, len(cfg.Credentials.Keys))
	if cfg.Credentials.KeyFile != "" {
		fmt.Printf(", key file %s", cfg.Credentials.KeyFile)
		if cfg.Credentials.Watch {
			fmt.Printf(" (watched, debounce %s)", cfg.Credentials.WatchDebounce)
		}
	}
	fmt.Println()

	fmt.Printf("  Selection: %s\n", cfg.Selection.Strategy)

	fmt.Printf("  Quota:     %s req/min, %s req/hr, %s bytes/min, %s concurrent uploads\n",
		quotaLimit(int64(cfg.Quota.RequestsPerMinute)),
		quotaLimit(int64(cfg.Quota.RequestsPerHour)),
		quotaLimit(cfg.Quota.BytesPerMinute),
		quotaLimit(int64(cfg.Quota.MaxConcurrentUploads)))

	fmt.Printf("  Retry:     %d retries, %s base delay, %s cap, x%.1f growth, %.0f%% jitter\n",
		cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay,
		cfg.Retry.Multiplier, cfg.Retry.JitterFactor*100)
	fmt.Printf("             retryable statuses %v, network errors %s\n",
		cfg.Retry.RetryableStatusCodes, onOff(cfg.Retry.RetryOnNetworkError))

	if cfg.Cache.Enabled {
		fmt.Printf("  Cache:     enabled, %d entries, %s TTL, prune %q\n",
			cfg.Cache.MaxEntries, cfg.Cache.TTL, cfg.Cache.PruneSchedule)
	} else {
		fmt.Println("  Cache:     disabled")
	}

	fmt.Printf("  Storage:   %s", cfg.Storage.Backend)
	if cfg.Storage.Backend == "sqlite" {
		fmt.Printf(" (%s)", cfg.Storage.SQLite.Path)
	}
	fmt.Println()

	if cfg.Ledger.Enabled {
		fmt.Printf("  Ledger:    enabled (%s)", cfg.Ledger.Path)
		if cfg.Ledger.Retention.RetentionDays > 0 || cfg.Ledger.Retention.MaxRecords > 0 {
			fmt.Printf(", retention %dd / %s records",
				cfg.Ledger.Retention.RetentionDays,
				quotaLimit(cfg.Ledger.Retention.MaxRecords))
		}
		fmt.Println()
	} else {
		fmt.Println("  Ledger:    disabled")
	}

	fmt.Printf("  Logging:   %s, %s\n", cfg.Logging.Level, cfg.Logging.Format)
	fmt.Printf("  Metrics:   %s\n", onOff(cfg.Metrics.Enabled))
}

// quotaLimit renders a quota bound, where zero means unlimited.
func quotaLimit(v int64) string {
	if v <= 0 {
		return "unlimited"
	}
	return strconv.FormatInt(v, 10)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
