// Package keypool manages a pool of interchangeable API credentials with
// quota tracking and health-based exclusion.
//
// # Overview
//
// The keypool package implements credential selection and circuit breaking
// for outbound API dispatch. It supports:
//
//   - Pluggable selection strategies (round-robin, least-used, custom)
//   - Fixed per-minute and per-hour quota windows per credential
//   - Byte-rate budgets for upload-heavy workloads
//   - Sticky disabling of credentials after repeated errors
//   - Concurrent-upload slot gating
//   - Usage snapshots for persistence across restarts
//
// # Usage
//
//	pool, err := keypool.New("primary", keys, keypool.QuotaPolicy{
//	    RequestsPerMinute: 60,
//	    RequestsPerHour:   1000,
//	}, keypool.LeastUsed(), nil, nil)
//	if err != nil {
//	    return err
//	}
//
//	key, ok := pool.AvailableKey()
//	if !ok {
//	    // Backpressure: wait pool.EstimatedWaitTime() and try again.
//	    return nil
//	}
//
//	resp, err := callAPI(ctx, key, req)
//	if err != nil {
//	    pool.ReportError(key, err)
//	    return err
//	}
//	pool.ReportSuccess(key, resp.BytesUploaded)
//
// # Thread Safety
//
// All pool operations are safe for concurrent use; mutations are serialized
// through a single mutex so counters are never torn.
//
// Selection and outcome reporting are deliberately two separate calls, not
// one atomic reservation. Concurrent callers can select the same credential
// before either reports an outcome, briefly overshooting a quota window.
// This eventual-consistency window is an accepted tradeoff: reserving at
// selection time would charge quota for calls that never happen.
//
// # Credential Identity
//
// Credentials are opaque strings and are never written to logs, metrics, or
// storage. Everywhere a credential must be identified outside the pool, an
// eight-character digest prefix of the key is used instead.
package keypool
