// Ballast is a resilience toolkit for clients of generative AI APIs.
//
// It wraps upstream API access with:
//   - Credential pooling with quota-aware selection and circuit breaking
//   - Retry dispatch with exponential backoff and jitter
//   - TTL+LRU response caching keyed by request fingerprint
//   - A hash-chained attempt ledger for audit and forensics
//
// Usage:
//
//	# Validate a configuration file
//	ballast validate --config config.yaml
//
//	# List configured credentials by fingerprint (raw keys are never shown)
//	ballast keys list
//
//	# Inspect persisted usage snapshots
//	ballast usage show
//
//	# Verify the attempt ledger hash chain
//	ballast ledger verify
//
//	# Export ledger records for an audit window
//	ballast ledger export --time-range "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z" --format csv
//
//	# Exercise the pool and retry policy with synthetic traffic
//	ballast bench --requests 500
//
// For complete documentation, see: https://github.com/arclight-ai/ballast
package main

func main() {
	Execute()
}
