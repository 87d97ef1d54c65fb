package keypool

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"arclight-ai/ballast/pkg/fingerprint"
	"arclight-ai/ballast/pkg/keypool/storage"
)

// errorDisableThreshold is the cumulative error count at which a credential
// is disabled. Disabling is sticky; only ResetStats re-enables.
const errorDisableThreshold = 3

// maxRecommendedBatch caps RecommendedBatchSize.
const maxRecommendedBatch = 100

// keyState is the mutable usage record for one credential. It is owned by
// the pool and only touched under the pool lock. Credentials are never
// removed, only disabled or reset.
type keyState struct {
	key string
	id  string // redacted identity used in logs, metrics, and snapshots

	usageCount uint64
	totalBytes int64
	errorCount int
	disabled   bool
	lastUsedAt time.Time

	minute usageWindow // requests and bytes
	hour   usageWindow // requests only
}

// KeyUsage is a point-in-time stats record for one credential.
type KeyUsage struct {
	// KeyID is the redacted credential identity.
	KeyID string

	// UsageCount is the lifetime successful-request count.
	UsageCount uint64

	// TotalBytesUploaded is the lifetime uploaded byte count.
	TotalBytesUploaded int64

	// Errors is the cumulative error count.
	Errors int

	// Disabled reports whether the credential has been circuit-broken.
	Disabled bool

	// RequestsThisMinute, RequestsThisHour, and BytesThisMinute are the
	// live quota window counters.
	RequestsThisMinute int
	RequestsThisHour   int
	BytesThisMinute    int64

	// LastUsedAt is when the credential last completed a successful
	// request, or the zero time if never.
	LastUsedAt time.Time
}

// HealthSummary aggregates credential health across a pool.
type HealthSummary struct {
	Total    int
	Healthy  int
	Disabled int
}

// Pool manages an ordered set of opaque API credentials. See the package
// documentation for the selection/reporting protocol and its concurrency
// tradeoffs.
type Pool struct {
	name     string
	quota    QuotaPolicy
	strategy SelectionStrategy

	mu      sync.Mutex
	keys    []*keyState // configured order
	byKey   map[string]*keyState
	cursor  int // round-robin position
	uploads int // upload slots in use

	logger  *slog.Logger
	metrics *Metrics

	// now is the clock; replaced in tests to drive window rollover.
	now func() time.Time
}

// New creates a pool over the given credentials in the given order. keys
// must be non-empty with no blanks or duplicates. logger and metrics may be
// nil.
func New(name string, keys []string, quota QuotaPolicy, strategy SelectionStrategy, logger *slog.Logger, metrics *Metrics) (*Pool, error) {
	if name == "" {
		name = "default"
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one credential is required")
	}
	if err := quota.Validate(); err != nil {
		return nil, err
	}
	if strategy.kind == strategyCustom && strategy.selector == nil {
		return nil, fmt.Errorf("custom strategy requires a selector function")
	}
	if logger == nil {
		logger = slog.Default().With("component", "keypool", "pool", name)
	}

	p := &Pool{
		name:     name,
		quota:    quota,
		strategy: strategy,
		byKey:    make(map[string]*keyState, len(keys)),
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}

	for i, key := range keys {
		if key == "" {
			return nil, fmt.Errorf("credential at index %d is empty", i)
		}
		if _, dup := p.byKey[key]; dup {
			return nil, fmt.Errorf("credential at index %d is a duplicate", i)
		}
		ks := &keyState{key: key, id: fingerprint.ShortID(key)}
		p.keys = append(p.keys, ks)
		p.byKey[key] = ks
	}

	p.logger.Info("credential pool created",
		"keys", len(keys),
		"strategy", strategy.String(),
	)
	p.metrics.UpdateKeyCounts(name, len(keys), 0)
	return p, nil
}

// Name returns the pool's label name.
func (p *Pool) Name() string {
	return p.name
}

// Quota returns the pool's immutable quota policy.
func (p *Pool) Quota() QuotaPolicy {
	return p.quota
}

// AvailableKey returns a credential that is enabled and inside its quota
// windows, chosen by the configured strategy. The second return is false
// when no credential qualifies; that is the pool's only backpressure signal,
// and callers should consult EstimatedWaitTime before trying again.
//
// AvailableKey does not reserve quota. The caller reports the outcome with
// ReportSuccess or ReportError once the call completes; between those two
// calls a concurrent caller may select the same credential.
func (p *Pool) AvailableKey() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ks := p.selectLocked(p.now())
	if ks == nil {
		p.metrics.RecordBackpressure(p.name)
		p.logger.Debug("no credential available", "strategy", p.strategy.String())
		return "", false
	}

	p.metrics.RecordSelection(p.name, p.strategy.String())
	return ks.key, true
}

// selectLocked applies the configured strategy.
// Caller must hold the lock.
func (p *Pool) selectLocked(now time.Time) *keyState {
	switch p.strategy.kind {
	case strategyRoundRobin:
		// The cursor walks the full configured ring one slot per probe,
		// so with every credential usable the pool yields them cyclically
		// in original order.
		for i := 0; i < len(p.keys); i++ {
			ks := p.keys[p.cursor%len(p.keys)]
			p.cursor++
			if p.usableLocked(ks, now) {
				return ks
			}
		}
		return nil

	case strategyLeastUsed:
		var best *keyState
		for _, ks := range p.keys {
			if !p.usableLocked(ks, now) {
				continue
			}
			if best == nil || ks.usageCount < best.usageCount {
				best = ks
			}
		}
		return best

	case strategyCustom:
		candidates := make([]Candidate, 0, len(p.keys))
		for _, ks := range p.keys {
			if !p.usableLocked(ks, now) {
				continue
			}
			candidates = append(candidates, Candidate{
				Key:                ks.key,
				UsageCount:         ks.usageCount,
				RequestsThisMinute: ks.minute.requests,
				RequestsThisHour:   ks.hour.requests,
				BytesThisMinute:    ks.minute.bytes,
				LastUsedAt:         ks.lastUsedAt,
			})
		}
		if len(candidates) == 0 {
			return nil
		}
		key, ok := p.strategy.selector(candidates)
		if !ok {
			return nil
		}
		ks, known := p.byKey[key]
		if !known || !p.usableLocked(ks, now) {
			p.logger.Warn("custom selector returned a key outside the candidate set")
			return nil
		}
		return ks

	default:
		return nil
	}
}

// usableLocked reports whether ks may serve the next request, refreshing its
// windows first. Caller must hold the lock.
func (p *Pool) usableLocked(ks *keyState, now time.Time) bool {
	if ks.disabled {
		return false
	}

	ks.minute.resetIfElapsed(now, minuteWindow)
	ks.hour.resetIfElapsed(now, hourWindow)

	if p.quota.RequestsPerMinute > 0 && ks.minute.requests >= p.quota.RequestsPerMinute {
		return false
	}
	if p.quota.RequestsPerHour > 0 && ks.hour.requests >= p.quota.RequestsPerHour {
		return false
	}
	if p.quota.BytesPerMinute > 0 && ks.minute.bytes >= p.quota.BytesPerMinute {
		return false
	}
	return true
}

// ReportSuccess records a completed request against key, charging its quota
// windows and lifetime counters. bytesUploaded may be zero. Successes never
// reduce the error count. Unknown keys are ignored.
func (p *Pool) ReportSuccess(key string, bytesUploaded int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ks, ok := p.byKey[key]
	if !ok {
		p.logger.Warn("success reported for unknown credential")
		return
	}

	now := p.now()
	ks.minute.resetIfElapsed(now, minuteWindow)
	ks.hour.resetIfElapsed(now, hourWindow)

	ks.usageCount++
	ks.totalBytes += bytesUploaded
	ks.lastUsedAt = now
	ks.minute.requests++
	ks.minute.bytes += bytesUploaded
	ks.hour.requests++

	p.metrics.RecordSuccess(p.name, bytesUploaded)
}

// ReportError records a failed request against key. Error counts are
// cumulative; interleaved successes do not lower them. At the disable
// threshold the credential stops being selectable until ResetStats.
// Unknown keys are ignored.
func (p *Pool) ReportError(key string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ks, ok := p.byKey[key]
	if !ok {
		p.logger.Warn("error reported for unknown credential")
		return
	}

	ks.errorCount++
	p.metrics.RecordError(p.name)

	if !ks.disabled && ks.errorCount >= errorDisableThreshold {
		ks.disabled = true
		p.logger.Warn("credential disabled after repeated errors",
			"key_id", ks.id,
			"errors", ks.errorCount,
			"error", err,
		)
		p.metrics.RecordDisable(p.name)
		p.updateKeyCountsLocked()
		return
	}

	p.logger.Debug("credential error recorded",
		"key_id", ks.id,
		"errors", ks.errorCount,
		"error", err,
	)
}

// CanUseKey reports whether key belongs to the pool and is enabled. Quota is
// deliberately not consulted: an over-quota credential is merely unavailable
// until its window rolls over, which is a selection-time concern.
func (p *Pool) CanUseKey(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ks, ok := p.byKey[key]
	return ok && !ks.disabled
}

// UsageStats returns one record per credential in configured order. Window
// counters are refreshed first so the snapshot reflects the live windows.
func (p *Pool) UsageStats() []KeyUsage {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	stats := make([]KeyUsage, 0, len(p.keys))
	for _, ks := range p.keys {
		ks.minute.resetIfElapsed(now, minuteWindow)
		ks.hour.resetIfElapsed(now, hourWindow)

		stats = append(stats, KeyUsage{
			KeyID:              ks.id,
			UsageCount:         ks.usageCount,
			TotalBytesUploaded: ks.totalBytes,
			Errors:             ks.errorCount,
			Disabled:           ks.disabled,
			RequestsThisMinute: ks.minute.requests,
			RequestsThisHour:   ks.hour.requests,
			BytesThisMinute:    ks.minute.bytes,
			LastUsedAt:         ks.lastUsedAt,
		})
	}
	return stats
}

// KeyHealth returns aggregate counts of enabled and disabled credentials.
func (p *Pool) KeyHealth() HealthSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := HealthSummary{Total: len(p.keys)}
	for _, ks := range p.keys {
		if ks.disabled {
			h.Disabled++
		} else {
			h.Healthy++
		}
	}
	return h
}

// ResetStats zeroes every per-credential counter, re-enables every disabled
// credential, and rewinds the round-robin cursor to the first credential.
// In-flight upload slots are not stats and are left alone.
func (p *Pool) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ks := range p.keys {
		ks.usageCount = 0
		ks.totalBytes = 0
		ks.errorCount = 0
		ks.disabled = false
		ks.lastUsedAt = time.Time{}
		ks.minute.clear()
		ks.hour.clear()
	}
	p.cursor = 0

	p.logger.Info("credential stats reset", "keys", len(p.keys))
	p.updateKeyCountsLocked()
}

// RecommendedBatchSize suggests how many items of the given average size to
// submit per batch, bounded by the per-minute byte budget and the concurrent
// upload cap, clamped to [1, 100]. A non-positive average size leaves only
// the concurrency bound.
func (p *Pool) RecommendedBatchSize(averageItemSizeBytes int64) int {
	batch := maxRecommendedBatch

	if averageItemSizeBytes > 0 && p.quota.BytesPerMinute > 0 {
		if byBudget := p.quota.BytesPerMinute / averageItemSizeBytes; byBudget < int64(batch) {
			batch = int(byBudget)
		}
	}
	if p.quota.MaxConcurrentUploads > 0 && p.quota.MaxConcurrentUploads < batch {
		batch = p.quota.MaxConcurrentUploads
	}
	if batch < 1 {
		batch = 1
	}
	return batch
}

// EstimatedWaitTime returns how long until backpressure is expected to
// clear: zero when some enabled credential has quota headroom right now,
// otherwise the shortest time until one credential's blocking windows have
// all rolled over. A credential blocked by both windows is not ready until
// the later one resets. Zero with every credential disabled means waiting
// will not help; only ResetStats will.
func (p *Pool) EstimatedWaitTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	soonest := time.Duration(-1)

	for _, ks := range p.keys {
		if ks.disabled {
			continue
		}
		ks.minute.resetIfElapsed(now, minuteWindow)
		ks.hour.resetIfElapsed(now, hourWindow)

		minuteBlocked := (p.quota.RequestsPerMinute > 0 && ks.minute.requests >= p.quota.RequestsPerMinute) ||
			(p.quota.BytesPerMinute > 0 && ks.minute.bytes >= p.quota.BytesPerMinute)
		hourBlocked := p.quota.RequestsPerHour > 0 && ks.hour.requests >= p.quota.RequestsPerHour

		if !minuteBlocked && !hourBlocked {
			return 0
		}

		var wait time.Duration
		if minuteBlocked {
			wait = ks.minute.resetsAt(minuteWindow).Sub(now)
		}
		if hourBlocked {
			if hw := ks.hour.resetsAt(hourWindow).Sub(now); hw > wait {
				wait = hw
			}
		}
		if wait < 0 {
			wait = 0
		}
		if soonest < 0 || wait < soonest {
			soonest = wait
		}
	}

	if soonest < 0 {
		return 0
	}
	return soonest
}

// TryAcquireUploadSlot claims one of the pool-wide concurrent upload slots.
// It always succeeds when MaxConcurrentUploads is unlimited. A successful
// acquire must be paired with ReleaseUploadSlot.
func (p *Pool) TryAcquireUploadSlot() bool {
	if p.quota.MaxConcurrentUploads <= 0 {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.uploads >= p.quota.MaxConcurrentUploads {
		p.metrics.RecordUploadRejection(p.name)
		return false
	}
	p.uploads++
	p.metrics.UpdateUploadSlots(p.name, p.uploads)
	return true
}

// ReleaseUploadSlot returns a slot claimed by TryAcquireUploadSlot.
// Releasing more than was acquired is a no-op.
func (p *Pool) ReleaseUploadSlot() {
	if p.quota.MaxConcurrentUploads <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.uploads > 0 {
		p.uploads--
	}
	p.metrics.UpdateUploadSlots(p.name, p.uploads)
}

// UploadSlotsInUse returns the number of upload slots currently claimed.
func (p *Pool) UploadSlotsInUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uploads
}

// SnapshotUsage captures the pool's durable counters for persistence.
// Window counters are excluded: a quota window means nothing across a
// restart, while lifetime usage, error counts, and disabled flags carry
// over.
func (p *Pool) SnapshotUsage() *storage.UsageSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := &storage.UsageSnapshot{
		PoolName:   p.name,
		SnapshotID: uuid.NewString(),
		TakenAt:    p.now().UTC(),
	}
	for _, ks := range p.keys {
		snap.Keys = append(snap.Keys, storage.KeySnapshot{
			KeyID:              ks.id,
			UsageCount:         ks.usageCount,
			TotalBytesUploaded: ks.totalBytes,
			Errors:             ks.errorCount,
			Disabled:           ks.disabled,
			LastUsedAt:         ks.lastUsedAt,
		})
	}
	return snap
}

// RestoreUsage applies a previously saved snapshot. Entries are matched by
// redacted key identity, so a snapshot restores cleanly as long as the
// configured credentials are unchanged; entries for unknown keys are
// skipped. Returns how many credentials were restored.
func (p *Pool) RestoreUsage(snap *storage.UsageSnapshot) int {
	if snap == nil {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	byID := make(map[string]*keyState, len(p.keys))
	for _, ks := range p.keys {
		byID[ks.id] = ks
	}

	restored := 0
	for _, entry := range snap.Keys {
		ks, ok := byID[entry.KeyID]
		if !ok {
			continue
		}
		ks.usageCount = entry.UsageCount
		ks.totalBytes = entry.TotalBytesUploaded
		ks.errorCount = entry.Errors
		ks.disabled = entry.Disabled
		ks.lastUsedAt = entry.LastUsedAt
		restored++
	}

	if restored > 0 {
		p.logger.Info("credential usage restored",
			"snapshot_id", snap.SnapshotID,
			"restored", restored,
		)
		p.updateKeyCountsLocked()
	}
	return restored
}

// updateKeyCountsLocked publishes the healthy/disabled gauge split.
// Caller must hold the lock.
func (p *Pool) updateKeyCountsLocked() {
	healthy, disabled := 0, 0
	for _, ks := range p.keys {
		if ks.disabled {
			disabled++
		} else {
			healthy++
		}
	}
	p.metrics.UpdateKeyCounts(p.name, healthy, disabled)
}
