package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"arclight-ai/ballast/pkg/cli"
	"arclight-ai/ballast/pkg/config"
	"arclight-ai/ballast/pkg/ledger"
	"arclight-ai/ballast/pkg/ledger/export"
)

var ledgerFlags struct {
	timeRange string
	pool      string
	keyID     string
	outcome   string
	limit     int
	offset    int
	format    string
	pretty    bool
	noHeader  bool
	output    string
	dryRun    bool
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the attempt ledger",
	Long: `Verify, query, and maintain the hash-chained attempt ledger.

The ledger records one row per dispatched operation: which pool and
credential served it, how many tries it took, and how it ended. Each record
carries a SHA-256 hash over its contents and the previous record's hash, so
any tampering with stored history breaks the chain.

Subcommands:
  verify - Recompute the hash chain and report the first break
  export - Export records as JSON or CSV
  stats  - Summarize outcomes over a time range
  prune  - Apply the configured retention policy now

Examples:
  # Verify the whole chain
  ballast ledger verify

  # Export an audit window
  ballast ledger export --time-range "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z" --format csv

  # Outcome summary for one pool
  ballast ledger stats --pool batch-pool`,
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the ledger hash chain",
	Long: `Walk every record in append order, recomputing each record's hash and its
link to the previous record, and report the first break.

After pruning, the walk anchors at the oldest retained record; its back-link
points into the archive and is reported, not verified.

The command exits non-zero when the chain is broken, so it can gate
automated integrity checks.`,
	RunE: verifyLedger,
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger records",
	Long: `Export ledger records as JSON or CSV, to stdout or a file.

Records stream from storage, so exports of any size run in constant memory.

Time Range Format:
  RFC3339 interval: "start/end"
  Example: "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z"

Examples:
  # Everything, as JSON on stdout
  ballast ledger export

  # One day of one pool, as CSV in a file
  ballast ledger export --time-range "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z" \
    --pool batch-pool --format csv --output attempts.csv

  # Failures only
  ballast ledger export --outcome exhausted`,
	RunE: exportLedger,
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize ledger records",
	Long: `Summarize dispatch outcomes: totals by outcome, error kind, pool, and
credential, plus retry and payload volume figures.

Examples:
  # Everything
  ballast ledger stats

  # One audit window
  ballast ledger stats --time-range "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z"`,
	RunE: statsLedger,
}

var ledgerPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Run one retention pass with the configured policy: records older than the
retention window are removed first, then the oldest records beyond the size
cap. When archiving is configured, records are exported to a JSON archive
before deletion.

Examples:
  # Apply retention now
  ballast ledger prune

  # See what a pass would remove
  ballast ledger prune --dry-run`,
	RunE: pruneLedger,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd, ledgerExportCmd, ledgerStatsCmd, ledgerPruneCmd)

	ledgerVerifyCmd.Flags().StringVar(&ledgerFlags.format, "format", "text", "output format: text, json")

	ledgerExportCmd.Flags().StringVar(&ledgerFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	ledgerExportCmd.Flags().StringVar(&ledgerFlags.pool, "pool", "", "filter by pool name")
	ledgerExportCmd.Flags().StringVar(&ledgerFlags.keyID, "key-id", "", "filter by credential fingerprint")
	ledgerExportCmd.Flags().StringVar(&ledgerFlags.outcome, "outcome", "", "filter by outcome (success, exhausted, aborted)")
	ledgerExportCmd.Flags().IntVar(&ledgerFlags.limit, "limit", 0, "max records (0 = all)")
	ledgerExportCmd.Flags().IntVar(&ledgerFlags.offset, "offset", 0, "pagination offset")
	ledgerExportCmd.Flags().StringVar(&ledgerFlags.format, "format", "json", "output format: json, csv")
	ledgerExportCmd.Flags().BoolVar(&ledgerFlags.pretty, "pretty", false, "indent JSON output")
	ledgerExportCmd.Flags().BoolVar(&ledgerFlags.noHeader, "no-header", false, "omit the CSV header row")
	ledgerExportCmd.Flags().StringVarP(&ledgerFlags.output, "output", "o", "", "output file (default: stdout)")

	ledgerStatsCmd.Flags().StringVar(&ledgerFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	ledgerStatsCmd.Flags().StringVar(&ledgerFlags.pool, "pool", "", "filter by pool name")

	ledgerPruneCmd.Flags().BoolVar(&ledgerFlags.dryRun, "dry-run", false, "report what would be pruned without deleting")
}

// openLedger loads the configuration and opens the ledger store. The store
// is nil-checked here so every subcommand gives the same answer for a
// disabled ledger.
func openLedger() (*config.Config, ledger.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Ledger.Enabled {
		return nil, nil, cli.NewCommandError("ledger", fmt.Errorf("ledger is disabled in configuration (set ledger.enabled: true)"))
	}

	store, err := cfg.BuildLedgerStorage()
	if err != nil {
		return nil, nil, cli.NewCommandError("ledger", fmt.Errorf("failed to open ledger storage: %w", err))
	}
	return cfg, store, nil
}

// parseTimeRange parses an RFC3339 "start/end" interval.
func parseTimeRange(s string) (*time.Time, *time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid time range format (expected: start/end)")
	}

	startTime, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid start time: %w", err)
	}
	endTime, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid end time: %w", err)
	}
	if endTime.Before(startTime) {
		return nil, nil, fmt.Errorf("time range end precedes start")
	}
	return &startTime, &endTime, nil
}

func verifyLedger(cmd *cobra.Command, args []string) error {
	_, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := ledger.VerifyChain(context.Background(), store)
	if err != nil {
		return cli.NewCommandError("ledger", fmt.Errorf("verification failed: %w", err))
	}

	if ledgerFlags.format == "json" {
		formatter := &cli.JSONFormatter{Indent: true}
		if err := formatter.FormatTo(os.Stdout, report); err != nil {
			return err
		}
	} else {
		fmt.Printf("Records: %d\n", report.Records)
		anchor := report.AnchorHash
		if anchor == "" {
			anchor = "genesis (never pruned)"
		}
		fmt.Printf("Anchor:  %s\n", anchor)
		if report.Valid {
			fmt.Println("✓ Chain valid")
		} else {
			fmt.Printf("✗ Chain broken at seq %d (record %s): %s\n",
				report.BrokenSeq, report.BrokenID, report.Reason)
		}
	}

	if !report.Valid {
		return cli.NewCommandError("ledger", fmt.Errorf("chain broken at seq %d: %s", report.BrokenSeq, report.Reason))
	}
	return nil
}

// streamExporter is satisfied by both ledger export formats.
type streamExporter interface {
	ExportStream(ctx context.Context, records <-chan *ledger.AttemptRecord, w io.Writer) (int, error)
}

func exportLedger(cmd *cobra.Command, args []string) error {
	_, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	query := ledger.Query{
		PoolName:  ledgerFlags.pool,
		KeyID:     ledgerFlags.keyID,
		Outcome:   ledgerFlags.outcome,
		Limit:     ledgerFlags.limit,
		Offset:    ledgerFlags.offset,
		SortBy:    ledger.SortBySeq,
		SortOrder: ledger.SortOrderAsc,
	}
	if ledgerFlags.timeRange != "" {
		start, end, err := parseTimeRange(ledgerFlags.timeRange)
		if err != nil {
			return cli.NewCommandError("ledger", err)
		}
		query.StartTime = start
		query.EndTime = end
	}

	out := io.Writer(os.Stdout)
	toFile := ledgerFlags.output != ""
	if toFile {
		file, err := os.Create(ledgerFlags.output)
		if err != nil {
			return cli.NewCommandError("ledger", fmt.Errorf("failed to create output file: %w", err))
		}
		defer file.Close()
		out = file
	}

	var exporter streamExporter
	switch ledgerFlags.format {
	case "csv":
		exporter = export.NewCSVExporter(!ledgerFlags.noHeader)
	case "json":
		exporter = export.NewJSONExporter(ledgerFlags.pretty)
	default:
		return cli.NewCommandError("ledger", fmt.Errorf("unsupported format %q (supported: json, csv)", ledgerFlags.format))
	}

	// Cancelling the context releases the storage walker if the export
	// stops early on a write error.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records, errs, err := store.QueryStream(ctx, query)
	if err != nil {
		return cli.NewCommandError("ledger", fmt.Errorf("query failed: %w", err))
	}

	count, err := exporter.ExportStream(ctx, records, out)
	if err != nil {
		cancel()
		<-errs
		return cli.NewCommandError("ledger", fmt.Errorf("export failed: %w", err))
	}
	if err := <-errs; err != nil {
		return cli.NewCommandError("ledger", fmt.Errorf("query failed: %w", err))
	}

	if toFile {
		fmt.Printf("Exported %d record(s) to %s\n", count, ledgerFlags.output)
	}
	return nil
}

func statsLedger(cmd *cobra.Command, args []string) error {
	_, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	query := ledger.Query{
		PoolName:  ledgerFlags.pool,
		SortBy:    ledger.SortBySeq,
		SortOrder: ledger.SortOrderAsc,
	}
	if ledgerFlags.timeRange != "" {
		start, end, err := parseTimeRange(ledgerFlags.timeRange)
		if err != nil {
			return cli.NewCommandError("ledger", err)
		}
		query.StartTime = start
		query.EndTime = end
	}

	// Cancelling the context releases the storage walker if aggregation
	// stops early.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records, errs, err := store.QueryStream(ctx, query)
	if err != nil {
		return cli.NewCommandError("ledger", fmt.Errorf("query failed: %w", err))
	}

	stats := aggregateStats(records)
	if err := <-errs; err != nil {
		return cli.NewCommandError("ledger", fmt.Errorf("query failed: %w", err))
	}

	printStats(os.Stdout, stats, query)
	return nil
}

// ledgerStats aggregates dispatch outcomes for the stats subcommand.
type ledgerStats struct {
	total         int64
	totalAttempts int64
	retried       int64
	totalBytes    int64
	totalDelay    time.Duration
	byOutcome     map[string]int64
	byErrorKind   map[string]int64
	byPool        map[string]int64
	byKey         map[string]int64
}

func aggregateStats(records <-chan *ledger.AttemptRecord) *ledgerStats {
	stats := &ledgerStats{
		byOutcome:   make(map[string]int64),
		byErrorKind: make(map[string]int64),
		byPool:      make(map[string]int64),
		byKey:       make(map[string]int64),
	}

	for rec := range records {
		stats.total++
		stats.totalAttempts += int64(rec.Attempts)
		if rec.Attempts > 1 {
			stats.retried++
		}
		stats.totalBytes += rec.BytesUploaded
		stats.totalDelay += rec.TotalDelay
		stats.byOutcome[rec.Outcome]++
		if rec.ErrorKind != "" {
			stats.byErrorKind[rec.ErrorKind]++
		}
		stats.byPool[rec.PoolName]++
		if rec.KeyID != "" {
			stats.byKey[rec.KeyID]++
		}
	}
	return stats
}

func printStats(w io.Writer, stats *ledgerStats, query ledger.Query) {
	fmt.Fprintln(w, "Attempt Ledger Summary")
	fmt.Fprintln(w, "======================")
	if query.StartTime != nil && query.EndTime != nil {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			query.StartTime.Format(time.RFC3339),
			query.EndTime.Format(time.RFC3339))
	}
	if query.PoolName != "" {
		fmt.Fprintf(w, "Pool: %s\n", query.PoolName)
	}
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total Dispatches: %d\n", stats.total)
	if stats.total == 0 {
		return
	}

	fmt.Fprintf(w, "Total Attempts:   %d (%.2f per dispatch)\n",
		stats.totalAttempts, float64(stats.totalAttempts)/float64(stats.total))
	fmt.Fprintf(w, "Retried:          %d (%.0f%%)\n",
		stats.retried, float64(stats.retried)/float64(stats.total)*100)
	fmt.Fprintf(w, "Bytes Uploaded:   %d\n", stats.totalBytes)
	fmt.Fprintf(w, "Backoff Spent:    %s\n", stats.totalDelay)
	fmt.Fprintln(w)

	printBreakdown(w, "By Outcome:", stats.byOutcome, stats.total)
	if len(stats.byErrorKind) > 0 {
		printBreakdown(w, "By Error Kind:", stats.byErrorKind, stats.total)
	}
	printBreakdown(w, "By Pool:", stats.byPool, stats.total)
	if len(stats.byKey) > 0 {
		printBreakdown(w, "By Credential:", stats.byKey, stats.total)
	}
}

// printBreakdown writes one count-per-label section, largest first, with
// label order as the tiebreak so output is deterministic.
func printBreakdown(w io.Writer, title string, counts map[string]int64, total int64) {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	fmt.Fprintln(w, title)
	for _, label := range labels {
		pct := float64(counts[label]) / float64(total) * 100
		fmt.Fprintf(w, "  %s: %d (%.0f%%)\n", label, counts[label], pct)
	}
	fmt.Fprintln(w)
}

func pruneLedger(cmd *cobra.Command, args []string) error {
	cfg, store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if ledgerFlags.dryRun {
		return pruneDryRun(ctx, cfg, store)
	}

	logger, err := commandLogger(cfg)
	if err != nil {
		return cli.NewCommandError("ledger", err)
	}

	pruner, err := cfg.BuildPruner(store, logger)
	if err != nil {
		return cli.NewCommandError("ledger", err)
	}

	result, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("ledger", fmt.Errorf("prune failed: %w", err))
	}

	fmt.Printf("Age phase:   %d record(s) removed\n", result.AgePruned)
	fmt.Printf("Count phase: %d record(s) removed\n", result.CountPruned)
	for _, file := range result.ArchiveFiles {
		fmt.Printf("Archived:    %s\n", file)
	}
	if result.AgePruned == 0 && result.CountPruned == 0 {
		fmt.Println("Nothing to prune.")
	}
	return nil
}

// pruneDryRun reports what a retention pass would remove. The count-phase
// figure is a floor: records sharing the cutoff timestamp leave together, so
// a real pass can remove slightly more.
func pruneDryRun(ctx context.Context, cfg *config.Config, store ledger.Storage) error {
	retention := cfg.Ledger.Retention

	total, err := store.Count(ctx, ledger.Query{})
	if err != nil {
		return cli.NewCommandError("ledger", fmt.Errorf("count failed: %w", err))
	}
	fmt.Printf("Ledger holds %d record(s).\n", total)

	var ageEligible int64
	if retention.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -retention.RetentionDays)
		ageEligible, err = store.Count(ctx, ledger.Query{EndTime: &cutoff})
		if err != nil {
			return cli.NewCommandError("ledger", fmt.Errorf("count failed: %w", err))
		}
		fmt.Printf("Age phase:   would remove %d record(s) older than %d day(s)\n",
			ageEligible, retention.RetentionDays)
	} else {
		fmt.Println("Age phase:   disabled (retention_days is 0)")
	}

	if retention.MaxRecords > 0 {
		remaining := total - ageEligible
		excess := remaining - retention.MaxRecords
		if excess < 0 {
			excess = 0
		}
		fmt.Printf("Count phase: would remove at least %d record(s) beyond the %d cap\n",
			excess, retention.MaxRecords)
	} else {
		fmt.Println("Count phase: disabled (max_records is 0)")
	}

	return nil
}
