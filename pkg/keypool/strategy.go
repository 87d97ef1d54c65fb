package keypool

import "time"

// Candidate describes one usable credential offered to a custom selector.
// It is a snapshot: mutating it has no effect on the pool.
type Candidate struct {
	// Key is the raw credential. Selectors must treat it as opaque and
	// must not log it.
	Key string

	// UsageCount is the credential's lifetime successful-request count.
	UsageCount uint64

	// RequestsThisMinute and RequestsThisHour are the current window
	// counters.
	RequestsThisMinute int
	RequestsThisHour   int

	// BytesThisMinute is the byte count in the current minute window.
	BytesThisMinute int64

	// LastUsedAt is when the credential last completed a successful
	// request, or the zero time if never.
	LastUsedAt time.Time
}

// SelectorFunc chooses one credential from the usable candidates, or none.
// Candidates arrive in the pool's configured order. The returned key must be
// one of the candidates; returning false signals no choice.
//
// Selectors run while the pool lock is held: they must be pure, fast, and
// must not call back into the pool.
type SelectorFunc func(candidates []Candidate) (string, bool)

type strategyKind int

const (
	strategyRoundRobin strategyKind = iota
	strategyLeastUsed
	strategyCustom
)

// SelectionStrategy determines how AvailableKey picks among usable
// credentials. Construct one with RoundRobin, LeastUsed, or Custom.
type SelectionStrategy struct {
	kind     strategyKind
	selector SelectorFunc
}

// RoundRobin cycles through the configured credentials in original order,
// one step per selection, skipping credentials that are disabled or out of
// quota.
func RoundRobin() SelectionStrategy {
	return SelectionStrategy{kind: strategyRoundRobin}
}

// LeastUsed selects the usable credential with the smallest lifetime usage
// count, breaking ties by configured order.
func LeastUsed() SelectionStrategy {
	return SelectionStrategy{kind: strategyLeastUsed}
}

// Custom delegates selection to fn. See SelectorFunc for the contract.
func Custom(fn SelectorFunc) SelectionStrategy {
	return SelectionStrategy{kind: strategyCustom, selector: fn}
}

// String names the strategy for logs and metric labels.
func (s SelectionStrategy) String() string {
	switch s.kind {
	case strategyRoundRobin:
		return "round_robin"
	case strategyLeastUsed:
		return "least_used"
	case strategyCustom:
		return "custom"
	default:
		return "unknown"
	}
}
