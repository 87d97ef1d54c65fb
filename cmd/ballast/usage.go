package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"arclight-ai/ballast/pkg/cli"
	"arclight-ai/ballast/pkg/keypool/storage"
)

var usageFlags struct {
	format string
	yes    bool
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect persisted usage snapshots",
	Long: `Inspect the usage snapshots the pool persists through its storage backend.

A snapshot carries per-credential lifetime counters: successful requests,
uploaded bytes, errors, and circuit-breaker state. Quota window state is
ephemeral and never stored. Credentials appear by fingerprint only.

Subcommands:
  show  - Show the stored snapshot for a pool
  pools - List pools with a stored snapshot
  clear - Delete the stored snapshot for a pool

Examples:
  # Show the configured pool's snapshot
  ballast usage show

  # Show a specific pool
  ballast usage show batch-pool

  # List all pools in the backend
  ballast usage pools`,
}

var usageShowCmd = &cobra.Command{
	Use:   "show [pool]",
	Short: "Show the stored snapshot for a pool",
	Long: `Show the stored usage snapshot for a pool. Without an argument the pool
name from the configuration is used.

Examples:
  # Text summary
  ballast usage show

  # Per-credential rows for a spreadsheet
  ballast usage show --format csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: showUsage,
}

var usagePoolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "List pools with a stored snapshot",
	RunE:  listUsagePools,
}

var usageClearCmd = &cobra.Command{
	Use:   "clear [pool]",
	Short: "Delete the stored snapshot for a pool",
	Long: `Delete the stored usage snapshot for a pool. The pool starts from zeroed
counters on its next restore. Requires --yes.

Examples:
  ballast usage clear --yes
  ballast usage clear batch-pool --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: clearUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.AddCommand(usageShowCmd, usagePoolsCmd, usageClearCmd)

	usageShowCmd.Flags().StringVar(&usageFlags.format, "format", "text", "output format: text, json, csv")
	usageClearCmd.Flags().BoolVar(&usageFlags.yes, "yes", false, "confirm deletion")
}

// openBackend builds the configured storage backend and resolves the pool
// name an optional positional argument overrides.
func openBackend(args []string) (storage.Backend, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}

	backend, err := cfg.BuildBackend()
	if err != nil {
		return nil, "", cli.NewCommandError("usage", fmt.Errorf("failed to open storage backend: %w", err))
	}

	pool := cfg.Credentials.PoolName
	if len(args) > 0 {
		pool = args[0]
	}
	return backend, pool, nil
}

func showUsage(cmd *cobra.Command, args []string) error {
	backend, pool, err := openBackend(args)
	if err != nil {
		return err
	}
	defer backend.Close()

	snap, err := backend.Load(context.Background(), pool)
	if err != nil {
		return cli.NewCommandError("usage", fmt.Errorf("failed to load snapshot: %w", err))
	}
	if snap == nil {
		fmt.Printf("No snapshot stored for pool %q.\n", pool)
		return nil
	}

	switch usageFlags.format {
	case "json":
		formatter := &cli.JSONFormatter{Indent: true}
		return formatter.FormatTo(os.Stdout, snap)
	case "csv":
		formatter := &cli.CSVFormatter{
			Headers: []string{"key_id", "usage_count", "total_bytes_uploaded", "errors", "disabled", "last_used_at"},
		}
		rows := make([][]string, len(snap.Keys))
		for i, k := range snap.Keys {
			rows[i] = []string{
				k.KeyID,
				strconv.FormatUint(k.UsageCount, 10),
				strconv.FormatInt(k.TotalBytesUploaded, 10),
				strconv.Itoa(k.Errors),
				strconv.FormatBool(k.Disabled),
				formatLastUsed(k.LastUsedAt),
			}
		}
		return formatter.FormatTo(os.Stdout, rows)
	default:
		printSnapshotText(snap)
		return nil
	}
}

func printSnapshotText(snap *storage.UsageSnapshot) {
	fmt.Printf("Pool:     %s\n", snap.PoolName)
	fmt.Printf("Snapshot: %s\n", snap.SnapshotID)
	fmt.Printf("Taken at: %s\n", snap.TakenAt.Format(time.RFC3339))
	fmt.Println()

	if len(snap.Keys) == 0 {
		fmt.Println("No credentials in snapshot.")
		return
	}

	fmt.Printf("%-12s %10s %14s %7s %-9s %s\n",
		"KEY", "REQUESTS", "BYTES", "ERRORS", "STATE", "LAST USED")
	for _, k := range snap.Keys {
		state := "healthy"
		if k.Disabled {
			state = "disabled"
		}
		fmt.Printf("%-12s %10d %14d %7d %-9s %s\n",
			k.KeyID, k.UsageCount, k.TotalBytesUploaded, k.Errors, state,
			formatLastUsed(k.LastUsedAt))
	}
}

func formatLastUsed(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func listUsagePools(cmd *cobra.Command, args []string) error {
	backend, _, err := openBackend(nil)
	if err != nil {
		return err
	}
	defer backend.Close()

	pools, err := backend.ListPools(context.Background())
	if err != nil {
		return cli.NewCommandError("usage", fmt.Errorf("failed to list pools: %w", err))
	}

	if len(pools) == 0 {
		fmt.Println("No pools with a stored snapshot.")
		return nil
	}

	fmt.Printf("%d pool(s) with a stored snapshot:\n", len(pools))
	for _, pool := range pools {
		fmt.Printf("  %s\n", pool)
	}
	return nil
}

func clearUsage(cmd *cobra.Command, args []string) error {
	if !usageFlags.yes {
		return cli.NewCommandError("usage", fmt.Errorf("refusing to delete a snapshot without --yes"))
	}

	backend, pool, err := openBackend(args)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := backend.Delete(context.Background(), pool); err != nil {
		return cli.NewCommandError("usage", fmt.Errorf("failed to delete snapshot: %w", err))
	}

	fmt.Printf("Snapshot for pool %q deleted.\n", pool)
	return nil
}
