package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"arclight-ai/ballast/pkg/cli"
	"arclight-ai/ballast/pkg/fingerprint"
	"arclight-ai/ballast/pkg/keypool"
	"arclight-ai/ballast/pkg/ledger/recorder"
	"arclight-ai/ballast/pkg/retry"
)

var benchFlags struct {
	requests    int
	concurrency int
	errorRate   float64
	bytesPer    int64
	format      string
	record      bool
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Exercise the pool and retry policy with synthetic traffic",
	Long: `Drive synthetic dispatches through the configured credential pool and
retry executor to see how the whole stack behaves under load.

No upstream is contacted: each dispatch sleeps a few milliseconds and fails
with the configured probability, carrying a retryable 503 status. What the
run shows is real, though — selection spread across credentials, quota
backpressure, retry absorption of injected faults, and circuit breaking.

Metrics Collected:
  - Dispatch throughput and latency percentiles (p50, p95, p99, max)
  - Success/failure split and mean attempts per dispatch
  - Backpressure waits while every credential was over quota
  - Dispatch distribution across credentials

Examples:
  # Quick run with defaults
  ballast bench

  # Saturate a strict quota to watch backpressure
  ballast bench --requests 2000 --concurrency 16

  # Heavy fault injection
  ballast bench --error-rate 0.5

  # Record each dispatch in the attempt ledger
  ballast bench --record`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntVar(&benchFlags.requests, "requests", 200, "total dispatches")
	benchCmd.Flags().IntVar(&benchFlags.concurrency, "concurrency", 4, "concurrent workers")
	benchCmd.Flags().Float64Var(&benchFlags.errorRate, "error-rate", 0.1, "probability a simulated attempt fails")
	benchCmd.Flags().Int64Var(&benchFlags.bytesPer, "bytes", 1024, "payload bytes attributed per dispatch")
	benchCmd.Flags().StringVar(&benchFlags.format, "format", "text", "output format: text, json")
	benchCmd.Flags().BoolVar(&benchFlags.record, "record", false, "record dispatches in the attempt ledger")
}

// benchError is the injected fault: a retryable upstream status.
type benchError struct {
	code int
}

func (e *benchError) Error() string {
	return fmt.Sprintf("simulated upstream failure: status %d", e.code)
}

func (e *benchError) StatusCode() int {
	return e.code
}

// benchReport is the result of one bench run.
type benchReport struct {
	Dispatches   int           `json:"dispatches"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Attempts     int           `json:"attempts"`
	Backpressure int           `json:"backpressure_waits"`
	Duration     time.Duration `json:"duration"`

	ThroughputPerSec float64 `json:"throughput_per_sec"`

	LatencyMin    time.Duration `json:"latency_min"`
	LatencyMean   time.Duration `json:"latency_mean"`
	LatencyMedian time.Duration `json:"latency_median"`
	LatencyP95    time.Duration `json:"latency_p95"`
	LatencyP99    time.Duration `json:"latency_p99"`
	LatencyMax    time.Duration `json:"latency_max"`

	PerKey map[string]int `json:"per_key"`
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchFlags.requests <= 0 {
		return cli.NewCommandError("bench", fmt.Errorf("requests must be positive, got %d", benchFlags.requests))
	}
	if benchFlags.concurrency <= 0 {
		return cli.NewCommandError("bench", fmt.Errorf("concurrency must be positive, got %d", benchFlags.concurrency))
	}
	if benchFlags.errorRate < 0 || benchFlags.errorRate > 1 {
		return cli.NewCommandError("bench", fmt.Errorf("error-rate must be in [0,1], got %g", benchFlags.errorRate))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := commandLogger(cfg)
	if err != nil {
		return cli.NewCommandError("bench", err)
	}

	pool, err := cfg.BuildPool(logger, nil)
	if err != nil {
		return cli.NewCommandError("bench", fmt.Errorf("failed to build pool: %w", err))
	}
	executor, err := cfg.BuildExecutor(logger, nil)
	if err != nil {
		return cli.NewCommandError("bench", fmt.Errorf("failed to build executor: %w", err))
	}

	var rec *recorder.Recorder
	if benchFlags.record {
		if !cfg.Ledger.Enabled {
			return cli.NewCommandError("bench", fmt.Errorf("--record needs ledger.enabled: true"))
		}
		store, err := cfg.BuildLedgerStorage()
		if err != nil {
			return cli.NewCommandError("bench", fmt.Errorf("failed to open ledger storage: %w", err))
		}
		defer store.Close()

		rec, err = cfg.BuildRecorder(store, logger)
		if err != nil {
			return cli.NewCommandError("bench", fmt.Errorf("failed to build recorder: %w", err))
		}
		defer rec.Close()
	}

	fmt.Println("Ballast Bench")
	fmt.Println("=============")
	fmt.Printf("Pool: %q (%d credential(s), %s selection)\n",
		pool.Name(), pool.KeyHealth().Total, cfg.Selection.Strategy)
	fmt.Printf("Dispatches: %d, concurrency %d, error rate %.0f%%\n",
		benchFlags.requests, benchFlags.concurrency, benchFlags.errorRate*100)
	fmt.Println()

	report := dispatchLoad(cli.SetupSignalHandler(), pool, executor, rec)

	if benchFlags.format == "json" {
		formatter := &cli.JSONFormatter{Indent: true}
		return formatter.FormatTo(os.Stdout, report)
	}
	printBenchReport(report)
	return nil
}

// dispatchLoad runs the synthetic dispatches and gathers the report. Workers
// share one pool and executor the way concurrent uploaders would.
func dispatchLoad(ctx context.Context, pool *keypool.Pool, executor *retry.Executor, rec *recorder.Recorder) *benchReport {
	var (
		mu           sync.Mutex
		latencies    []time.Duration
		perKey       = make(map[string]int)
		succeeded    int
		failed       int
		attempts     int
		backpressure int
	)

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(int64(benchFlags.requests))

	next := make(chan struct{}, benchFlags.requests)
	for i := 0; i < benchFlags.requests; i++ {
		next <- struct{}{}
	}
	close(next)

	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < benchFlags.concurrency; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for range next {
				if ctx.Err() != nil {
					return
				}

				key, ok := pool.AvailableKey()
				for !ok {
					// Every credential is over quota or disabled; wait
					// out the shortest window like a real dispatcher.
					wait := pool.EstimatedWaitTime()
					if wait <= 0 || wait > 100*time.Millisecond {
						wait = 100 * time.Millisecond
					}
					mu.Lock()
					backpressure++
					mu.Unlock()

					select {
					case <-ctx.Done():
						return
					case <-time.After(wait):
					}
					key, ok = pool.AvailableKey()
				}

				dispatchStart := time.Now()
				res := retry.ExecuteWithResult(ctx, executor, func(ctx context.Context) (struct{}, error) {
					time.Sleep(time.Duration(5+rng.Intn(20)) * time.Millisecond)
					if rng.Float64() < benchFlags.errorRate {
						return struct{}{}, &benchError{code: 503}
					}
					return struct{}{}, nil
				})
				dispatchEnd := time.Now()

				if res.Succeeded() {
					pool.ReportSuccess(key, benchFlags.bytesPer)
				} else {
					pool.ReportError(key, res.Err)
				}

				if rec != nil {
					_ = rec.Record(recorder.Attempt{
						Pool:          pool.Name(),
						Key:           key,
						Attempts:      res.Attempts,
						BytesUploaded: benchFlags.bytesPer,
						Err:           res.Err,
						StartedAt:     dispatchStart,
						CompletedAt:   dispatchEnd,
					})
				}

				mu.Lock()
				latencies = append(latencies, dispatchEnd.Sub(dispatchStart))
				perKey[fingerprint.ShortID(key)]++
				attempts += res.Attempts
				if res.Succeeded() {
					succeeded++
				} else {
					failed++
				}
				done := succeeded + failed
				mu.Unlock()
				progress.Update(int64(done))
			}
		}(int64(w) + time.Now().UnixNano())
	}
	wg.Wait()
	progress.Finish()

	report := &benchReport{
		Dispatches:   succeeded + failed,
		Succeeded:    succeeded,
		Failed:       failed,
		Attempts:     attempts,
		Backpressure: backpressure,
		Duration:     time.Since(start),
		PerKey:       perKey,
	}
	if report.Duration > 0 {
		report.ThroughputPerSec = float64(report.Dispatches) / report.Duration.Seconds()
	}
	fillLatencyPercentiles(report, latencies)
	return report
}

// fillLatencyPercentiles computes the latency distribution for the report.
func fillLatencyPercentiles(report *benchReport, latencies []time.Duration) {
	if len(latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}

	report.LatencyMin = sorted[0]
	report.LatencyMean = sum / time.Duration(len(sorted))
	report.LatencyMedian = percentile(sorted, 0.50)
	report.LatencyP95 = percentile(sorted, 0.95)
	report.LatencyP99 = percentile(sorted, 0.99)
	report.LatencyMax = sorted[len(sorted)-1]
}

// percentile picks the nearest-rank percentile from a sorted slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func printBenchReport(report *benchReport) {
	fmt.Println()
	fmt.Println("Results:")
	fmt.Println("--------")
	fmt.Printf("Dispatches:   %d total, %d succeeded, %d failed\n",
		report.Dispatches, report.Succeeded, report.Failed)
	fmt.Printf("Duration:     %.1fs\n", report.Duration.Seconds())
	fmt.Printf("Throughput:   %.1f req/s\n", report.ThroughputPerSec)
	if report.Dispatches > 0 {
		fmt.Printf("Attempts:     %d (%.2f per dispatch)\n",
			report.Attempts, float64(report.Attempts)/float64(report.Dispatches))
	}
	fmt.Printf("Backpressure: %d wait(s)\n", report.Backpressure)

	if report.LatencyMax > 0 {
		fmt.Println()
		fmt.Println("Latency:")
		fmt.Printf("  Min:     %.1fms\n", millis(report.LatencyMin))
		fmt.Printf("  Mean:    %.1fms\n", millis(report.LatencyMean))
		fmt.Printf("  Median:  %.1fms\n", millis(report.LatencyMedian))
		fmt.Printf("  p95:     %.1fms\n", millis(report.LatencyP95))
		fmt.Printf("  p99:     %.1fms\n", millis(report.LatencyP99))
		fmt.Printf("  Max:     %.1fms\n", millis(report.LatencyMax))
	}

	if len(report.PerKey) > 0 {
		keyIDs := make([]string, 0, len(report.PerKey))
		for keyID := range report.PerKey {
			keyIDs = append(keyIDs, keyID)
		}
		sort.Slice(keyIDs, func(i, j int) bool {
			if report.PerKey[keyIDs[i]] != report.PerKey[keyIDs[j]] {
				return report.PerKey[keyIDs[i]] > report.PerKey[keyIDs[j]]
			}
			return keyIDs[i] < keyIDs[j]
		})

		fmt.Println()
		fmt.Println("Per credential:")
		for _, keyID := range keyIDs {
			count := report.PerKey[keyID]
			pct := float64(count) / float64(report.Dispatches) * 100
			fmt.Printf("  sha256:%s: %d (%.0f%%)\n", keyID, count, pct)
		}
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
