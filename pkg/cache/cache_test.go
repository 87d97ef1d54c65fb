package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source for driving expiry deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(policy Policy) (*ResponseCache, *fakeClock) {
	c := New("test", policy, nil, nil)
	clock := newFakeClock()
	c.now = clock.Now
	return c, clock
}

type sampleResponse struct {
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
}

// ============================================================================
// Basic Operations Tests
// ============================================================================

func TestCache_RoundTrip(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})

	want := sampleResponse{Text: "hello", Tokens: 3}
	Set(c, "key-1", want)

	got, ok := Get[sampleResponse](c, "key-1")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestCache_MissingKey(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})

	if _, ok := Get[sampleResponse](c, "nope"); ok {
		t.Error("Expected miss for absent key")
	}
}

func TestCache_ReplaceExistingKey(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})

	Set(c, "key-1", sampleResponse{Text: "first", Tokens: 1})
	Set(c, "key-1", sampleResponse{Text: "second", Tokens: 2})

	got, ok := Get[sampleResponse](c, "key-1")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if got.Text != "second" {
		t.Errorf("Expected replacement value, got %+v", got)
	}

	stats := c.Statistics()
	if stats.EntryCount != 1 {
		t.Errorf("Expected 1 entry after replace, got %d", stats.EntryCount)
	}
}

func TestCache_Remove(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})

	Set(c, "key-1", sampleResponse{Text: "hello"})
	c.Remove("key-1")

	if _, ok := Get[sampleResponse](c, "key-1"); ok {
		t.Error("Expected miss after Remove")
	}

	// Removing an absent key is a no-op.
	c.Remove("never-existed")
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})

	for i := 0; i < 5; i++ {
		Set(c, fmt.Sprintf("key-%d", i), sampleResponse{Tokens: i})
	}

	c.Clear()

	stats := c.Statistics()
	if stats.EntryCount != 0 {
		t.Errorf("Expected empty cache after Clear, got %d entries", stats.EntryCount)
	}
	if stats.TotalSize != 0 {
		t.Errorf("Expected zero total size after Clear, got %d", stats.TotalSize)
	}
}

// ============================================================================
// Disabled Cache Tests
// ============================================================================

func TestCache_DisabledByZeroEntries(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 0, TTL: time.Minute})

	if c.Enabled() {
		t.Error("Expected cache with zero capacity to be disabled")
	}

	Set(c, "key-1", sampleResponse{Text: "hello"})
	if _, ok := Get[sampleResponse](c, "key-1"); ok {
		t.Error("Expected disabled cache to store nothing")
	}
}

func TestCache_DisabledByZeroTTL(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: 0})

	if c.Enabled() {
		t.Error("Expected cache with zero TTL to be disabled")
	}

	Set(c, "key-1", sampleResponse{Text: "hello"})
	if _, ok := Get[sampleResponse](c, "key-1"); ok {
		t.Error("Expected disabled cache to store nothing")
	}
}

// ============================================================================
// Expiration Tests
// ============================================================================

func TestCache_LazyExpiry(t *testing.T) {
	c, clock := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})

	Set(c, "key-1", sampleResponse{Text: "hello"})

	// Just inside the TTL the entry is live.
	clock.Advance(59 * time.Second)
	if _, ok := Get[sampleResponse](c, "key-1"); !ok {
		t.Fatal("Expected hit inside TTL")
	}

	// Past the TTL the same lookup misses and removes the entry.
	clock.Advance(2 * time.Second)
	if _, ok := Get[sampleResponse](c, "key-1"); ok {
		t.Fatal("Expected miss past TTL")
	}
	if c.Statistics().EntryCount != 0 {
		t.Error("Expected expired entry to be removed on lookup")
	}
}

func TestCache_ExpiredEntryStillCountsUntilTouched(t *testing.T) {
	c, clock := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})

	Set(c, "key-1", sampleResponse{Text: "hello"})
	clock.Advance(2 * time.Minute)

	// Expiry is lazy: nothing has looked at the entry yet.
	if c.Statistics().EntryCount != 1 {
		t.Error("Expected stale entry to linger until touched")
	}
}

func TestCache_PruneExpired(t *testing.T) {
	c, clock := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})

	Set(c, "old-1", sampleResponse{Tokens: 1})
	Set(c, "old-2", sampleResponse{Tokens: 2})
	clock.Advance(2 * time.Minute)
	Set(c, "fresh", sampleResponse{Tokens: 3})

	pruned := c.PruneExpired()
	if pruned != 2 {
		t.Errorf("Expected 2 pruned entries, got %d", pruned)
	}

	if _, ok := Get[sampleResponse](c, "fresh"); !ok {
		t.Error("Expected fresh entry to survive pruning")
	}
	if c.Statistics().EntryCount != 1 {
		t.Errorf("Expected 1 entry after pruning, got %d", c.Statistics().EntryCount)
	}
}

// ============================================================================
// Eviction Tests
// ============================================================================

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 2, TTL: time.Minute})

	Set(c, "a", sampleResponse{Text: "a"})
	Set(c, "b", sampleResponse{Text: "b"})

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := Get[sampleResponse](c, "a"); !ok {
		t.Fatal("Expected hit for a")
	}

	Set(c, "c", sampleResponse{Text: "c"})

	if _, ok := Get[sampleResponse](c, "a"); !ok {
		t.Error("Expected recently used entry a to survive")
	}
	if _, ok := Get[sampleResponse](c, "b"); ok {
		t.Error("Expected least recently used entry b to be evicted")
	}
	if _, ok := Get[sampleResponse](c, "c"); !ok {
		t.Error("Expected newly inserted entry c to be present")
	}
}

func TestCache_EvictionKeepsCapacityBound(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 3, TTL: time.Minute})

	for i := 0; i < 20; i++ {
		Set(c, fmt.Sprintf("key-%d", i), sampleResponse{Tokens: i})
	}

	stats := c.Statistics()
	if stats.EntryCount != 3 {
		t.Errorf("Expected entry count pinned at 3, got %d", stats.EntryCount)
	}

	// The three most recent inserts survive.
	for i := 17; i < 20; i++ {
		if _, ok := Get[sampleResponse](c, fmt.Sprintf("key-%d", i)); !ok {
			t.Errorf("Expected key-%d to survive", i)
		}
	}
}

func TestCache_InsertionOrderEvictionWithoutReads(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 2, TTL: time.Minute})

	Set(c, "a", sampleResponse{Text: "a"})
	Set(c, "b", sampleResponse{Text: "b"})
	Set(c, "c", sampleResponse{Text: "c"})

	if _, ok := Get[sampleResponse](c, "a"); ok {
		t.Error("Expected oldest insert a to be evicted")
	}
	if _, ok := Get[sampleResponse](c, "b"); !ok {
		t.Error("Expected b to survive")
	}
}

// ============================================================================
// Size Limit Tests
// ============================================================================

func TestCache_OversizeResponseDropped(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute, MaxResponseSize: 32})

	big := sampleResponse{Text: "this response body is far larger than the configured limit"}
	Set(c, "big", big)

	if _, ok := Get[sampleResponse](c, "big"); ok {
		t.Error("Expected oversize response to be silently dropped")
	}

	small := sampleResponse{Text: "ok"}
	Set(c, "small", small)
	if _, ok := Get[sampleResponse](c, "small"); !ok {
		t.Error("Expected small response to be cached")
	}
}

func TestCache_ZeroSizeLimitMeansUnlimited(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute, MaxResponseSize: 0})

	big := sampleResponse{Text: "a perfectly cacheable response of arbitrary length with no limit set"}
	Set(c, "big", big)

	if _, ok := Get[sampleResponse](c, "big"); !ok {
		t.Error("Expected response to be cached when no size limit is set")
	}
}

// ============================================================================
// Serialization Failure Tests
// ============================================================================

func TestCache_UnserializableValueNotCached(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})

	// Channels have no JSON encoding; Set must swallow the failure.
	Set(c, "bad", make(chan int))

	if c.Statistics().EntryCount != 0 {
		t.Error("Expected unserializable value to be dropped")
	}
}

func TestCache_TypeMismatchReadsAsMiss(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})

	Set(c, "key-1", "just a string")

	// Reading the same bytes as an incompatible type misses and drops the
	// entry rather than failing.
	if _, ok := Get[sampleResponse](c, "key-1"); ok {
		t.Error("Expected type mismatch to read as miss")
	}
	if c.Statistics().EntryCount != 0 {
		t.Error("Expected undecodable entry to be removed")
	}
}

// ============================================================================
// Statistics Tests
// ============================================================================

func TestCache_Statistics(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 4, TTL: time.Minute})

	Set(c, "a", sampleResponse{Text: "a"})
	Set(c, "b", sampleResponse{Text: "b"})

	stats := c.Statistics()
	if stats.EntryCount != 2 {
		t.Errorf("Expected 2 entries, got %d", stats.EntryCount)
	}
	if stats.MaxEntries != 4 {
		t.Errorf("Expected capacity 4, got %d", stats.MaxEntries)
	}
	if stats.TotalSize <= 0 {
		t.Errorf("Expected positive total size, got %d", stats.TotalSize)
	}
	if stats.UtilizationPercent != 50 {
		t.Errorf("Expected 50%% utilization, got %.1f", stats.UtilizationPercent)
	}
	if stats.TTL != time.Minute {
		t.Errorf("Expected TTL %v, got %v", time.Minute, stats.TTL)
	}
}

func TestCache_ErrorCachingFlag(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute, CacheErrors: true})
	if !c.AllowsErrorCaching() {
		t.Error("Expected error caching to be allowed")
	}

	c2, _ := newTestCache(Policy{MaxEntries: 10, TTL: time.Minute})
	if c2.AllowsErrorCaching() {
		t.Error("Expected error caching to be disallowed by default")
	}
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestCache_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(Policy{MaxEntries: 50, TTL: time.Minute})

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("key-%d", i%60)
				Set(c, key, sampleResponse{Tokens: g*1000 + i})
				Get[sampleResponse](c, key)
				if i%10 == 0 {
					c.Statistics()
				}
			}
		}(g)
	}
	wg.Wait()

	stats := c.Statistics()
	if stats.EntryCount > 50 {
		t.Errorf("Expected entry count within capacity, got %d", stats.EntryCount)
	}
}
