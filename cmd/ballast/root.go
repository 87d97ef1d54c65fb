package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"arclight-ai/ballast/pkg/cli"
	"arclight-ai/ballast/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ballast",
	Short: "Ballast - resilience toolkit for generative AI clients",
	Long: `Ballast keeps batch workloads against generative AI APIs running when
individual credentials hit quota walls or upstreams misbehave.

It provides:
  - Credential pooling with quota-aware selection and circuit breaking
  - Retry dispatch with exponential backoff and jitter
  - TTL+LRU response caching keyed by request fingerprint
  - A hash-chained attempt ledger for audit and forensics

The ballast command inspects and maintains a deployment: validating
configuration, listing credential fingerprints, examining usage snapshots,
and verifying, exporting, or pruning the attempt ledger.

For more information, visit: https://github.com/arclight-ai/ballast`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}

// loadConfig reads the configuration file shared by most subcommands, with
// environment overrides applied so the CLI sees the same effective
// configuration as the embedding application.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config %q: %v", cfgFile, err))
	}
	return cfg, nil
}

// commandLogger builds the configured logger, raised to debug when --verbose
// is set. Commands that only print results pass their output through stdout
// and keep diagnostics on the logger.
func commandLogger(cfg *config.Config) (*slog.Logger, error) {
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg.BuildLogger()
}
