package cache

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Policy controls capacity, freshness, and size bounds for a ResponseCache.
// A Policy is immutable once attached to a cache.
type Policy struct {
	// MaxEntries bounds the number of cached entries. 0 disables the cache.
	MaxEntries int

	// TTL is how long an entry stays valid. 0 disables the cache.
	TTL time.Duration

	// CacheErrors indicates whether callers should cache error responses
	// too. The cache stores whatever it is given; this flag is surfaced to
	// dispatch code via AllowsErrorCaching.
	CacheErrors bool

	// MaxResponseSize is the largest serialized entry stored, in bytes.
	// 0 means unlimited.
	MaxResponseSize int64
}

// DefaultPolicy returns a moderate cache suitable for interactive use:
// 100 entries, 5 minute TTL, 1 MiB per entry, errors not cached.
func DefaultPolicy() Policy {
	return Policy{
		MaxEntries:      100,
		TTL:             5 * time.Minute,
		CacheErrors:     false,
		MaxResponseSize: 1 << 20,
	}
}

// entry is one cached response. Entries are immutable except for their
// recency sequence; a re-set replaces the entry wholesale.
type entry struct {
	key       string
	data      []byte
	size      int64
	createdAt time.Time
	expiresAt time.Time

	// seq orders entries by recency: the entry with the smallest seq is
	// the least recently used. Updated on every hit under the write lock.
	seq uint64
}

// Statistics is a point-in-time snapshot of cache occupancy.
type Statistics struct {
	// EntryCount is the current number of live entries.
	EntryCount int

	// MaxEntries is the configured capacity.
	MaxEntries int

	// TotalSize is the sum of serialized entry sizes in bytes.
	TotalSize int64

	// TTL is the configured entry lifetime.
	TTL time.Duration

	// UtilizationPercent is EntryCount/MaxEntries as a percentage.
	UtilizationPercent float64
}

// ResponseCache is a thread-safe TTL+LRU store keyed by request
// fingerprints.
//
// Use the package-level Get and Set functions for typed access; the methods
// on ResponseCache operate on keys only.
type ResponseCache struct {
	// name distinguishes this cache in logs and metric labels.
	name string

	policy Policy

	// entries maps fingerprint keys to live entries.
	entries map[string]*entry

	// seq is the recency counter; incremented under mu for every insert
	// and hit.
	seq uint64

	// totalSize tracks the summed serialized size of live entries.
	totalSize int64

	mu sync.Mutex

	logger  *slog.Logger
	metrics *Metrics

	// now is the clock; replaced in tests to drive expiry deterministically.
	now func() time.Time
}

// New creates a ResponseCache with the given name and policy. logger and
// metrics may be nil. A policy with MaxEntries or TTL of zero produces a
// disabled cache, which is valid and sometimes deliberate, so New never
// fails.
func New(name string, policy Policy, logger *slog.Logger, metrics *Metrics) *ResponseCache {
	if name == "" {
		name = "response"
	}
	if logger == nil {
		logger = slog.Default().With("component", "cache", "cache", name)
	}

	return &ResponseCache{
		name:    name,
		policy:  policy,
		entries: make(map[string]*entry),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Enabled reports whether the cache stores anything at all.
func (c *ResponseCache) Enabled() bool {
	return c.policy.MaxEntries > 0 && c.policy.TTL > 0
}

// AllowsErrorCaching reports whether the policy permits caching error
// responses. The cache itself does not distinguish values; dispatch code
// consults this before storing a failure.
func (c *ResponseCache) AllowsErrorCaching() bool {
	return c.policy.CacheErrors
}

// Name returns the cache's label name.
func (c *ResponseCache) Name() string {
	return c.name
}

// Get retrieves and decodes the value cached under key. It returns the zero
// value and false on any miss: cache disabled, key absent, entry expired
// (removed as a side effect), or the stored bytes failing to decode into T
// (also removed — the entry is useless to every future reader of that type).
func Get[T any](c *ResponseCache, key string) (T, bool) {
	var zero T

	data, ok := c.lookup(key)
	if !ok {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		c.dropCorrupt(key, err)
		return zero, false
	}
	return value, true
}

// Set serializes value and stores it under key, evicting least-recently-used
// entries as needed. Failures never surface: a value that cannot be
// serialized, or whose serialized form exceeds MaxResponseSize, is silently
// not cached.
func Set[T any](c *ResponseCache, key string, value T) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.metrics.RecordSerializationFailure(c.name)
		c.logger.Debug("response not cached, serialization failed", "error", err)
		return
	}
	c.store(key, data)
}

// lookup finds a live entry and bumps its recency.
func (c *ResponseCache) lookup(key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.metrics.RecordMiss(c.name)
		return nil, false
	}

	if c.now().After(e.expiresAt) {
		c.removeLocked(key)
		c.metrics.RecordExpiration(c.name)
		c.metrics.RecordMiss(c.name)
		return nil, false
	}

	c.seq++
	e.seq = c.seq
	c.metrics.RecordHit(c.name)
	return e.data, true
}

// store inserts pre-serialized data under key.
func (c *ResponseCache) store(key string, data []byte) {
	size := int64(len(data))
	if c.policy.MaxResponseSize > 0 && size > c.policy.MaxResponseSize {
		c.metrics.RecordOversizeDrop(c.name)
		c.logger.Debug("response not cached, over size limit",
			"size", size,
			"limit", c.policy.MaxResponseSize,
		)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing an existing key does not grow the cache, so eviction only
	// applies to genuinely new keys.
	if existing, ok := c.entries[key]; ok {
		c.totalSize -= existing.size
	} else {
		for len(c.entries) >= c.policy.MaxEntries {
			c.evictLRULocked()
		}
	}

	now := c.now()
	c.seq++
	c.entries[key] = &entry{
		key:       key,
		data:      data,
		size:      size,
		createdAt: now,
		expiresAt: now.Add(c.policy.TTL),
		seq:       c.seq,
	}
	c.totalSize += size
	c.metrics.UpdateOccupancy(c.name, len(c.entries), c.totalSize)
}

// Remove deletes the entry under key, if any.
func (c *ResponseCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	c.metrics.UpdateOccupancy(c.name, len(c.entries), c.totalSize)
}

// Clear removes every entry.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.totalSize = 0
	c.metrics.UpdateOccupancy(c.name, 0, 0)
}

// PruneExpired removes every entry whose expiry has passed and returns how
// many were removed. This is the eager counterpart to the lazy expiry
// performed by Get.
func (c *ResponseCache) PruneExpired() int {
	if !c.Enabled() {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	pruned := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			c.removeLocked(key)
			c.metrics.RecordExpiration(c.name)
			pruned++
		}
	}

	if pruned > 0 {
		c.metrics.UpdateOccupancy(c.name, len(c.entries), c.totalSize)
	}
	return pruned
}

// Statistics returns a snapshot of current occupancy.
func (c *ResponseCache) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Statistics{
		EntryCount: len(c.entries),
		MaxEntries: c.policy.MaxEntries,
		TotalSize:  c.totalSize,
		TTL:        c.policy.TTL,
	}
	if c.policy.MaxEntries > 0 {
		stats.UtilizationPercent = float64(len(c.entries)) / float64(c.policy.MaxEntries) * 100
	}
	return stats
}

// removeLocked deletes key and adjusts size accounting.
// Caller must hold the lock.
func (c *ResponseCache) removeLocked(key string) {
	if e, ok := c.entries[key]; ok {
		c.totalSize -= e.size
		delete(c.entries, key)
	}
}

// evictLRULocked removes the entry with the smallest recency sequence.
// Caller must hold the lock.
func (c *ResponseCache) evictLRULocked() {
	if len(c.entries) == 0 {
		return
	}

	var victim string
	var oldest uint64
	first := true
	for key, e := range c.entries {
		if first || e.seq < oldest {
			victim = key
			oldest = e.seq
			first = false
		}
	}

	c.removeLocked(victim)
	c.metrics.RecordEviction(c.name)
}

// dropCorrupt removes an entry whose bytes no longer decode.
func (c *ResponseCache) dropCorrupt(key string, err error) {
	c.mu.Lock()
	c.removeLocked(key)
	c.mu.Unlock()

	c.metrics.RecordSerializationFailure(c.name)
	c.logger.Debug("cached entry dropped, decode failed", "error", err)
}
