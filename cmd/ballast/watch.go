package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"arclight-ai/ballast/pkg/cli"
	"arclight-ai/ballast/pkg/config"
	"arclight-ai/ballast/pkg/fingerprint"
)

var watchFlags struct {
	debounce time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the key file and report reloads",
	Long: `Watch the configured key file and print the resolved credential set after
each change, by fingerprint.

This is the same watcher an embedding application uses for hot credential
rotation, run in the foreground: edit the key file and see exactly what a
reload would hand the pool. Rapid successive writes collapse into one
reload. Runs until interrupted.

Examples:
  # Watch with the configured debounce
  ballast watch

  # Tighter debounce while editing by hand
  ballast watch --debounce 50ms`,
	RunE: watchKeys,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 0, "override the configured reload debounce")
}

func watchKeys(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Credentials.KeyFile == "" {
		return cli.NewCommandError("watch", fmt.Errorf("credentials.key_file is not configured"))
	}

	logger, err := commandLogger(cfg)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}

	debounce := cfg.Credentials.WatchDebounce
	if watchFlags.debounce > 0 {
		debounce = watchFlags.debounce
	}

	watcher, err := config.NewKeyFileWatcher(cfg.Credentials.KeyFile, debounce, logger)
	if err != nil {
		return cli.NewCommandError("watch", fmt.Errorf("failed to create watcher: %w", err))
	}

	fmt.Printf("Watching %s (debounce %s). Interrupt to stop.\n", cfg.Credentials.KeyFile, debounce)

	ctx := cli.SetupSignalHandler()
	err = watcher.Watch(ctx, func(keys []string) error {
		fmt.Printf("Reloaded %d credential(s):\n", len(keys))
		for i, key := range keys {
			fmt.Printf("  [%d] sha256:%s\n", i, fingerprint.ShortID(key))
		}
		return nil
	})
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}
