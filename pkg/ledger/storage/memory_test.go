package storage

import (
	"context"
	"testing"
	"time"

	"arclight-ai/ballast/pkg/ledger"
)

func memTestRecord(id, pool, outcome string, at time.Time) *ledger.AttemptRecord {
	return &ledger.AttemptRecord{
		ID:          id,
		PoolName:    pool,
		KeyID:       "a1b2c3d4",
		Attempts:    1,
		Outcome:     outcome,
		StartedAt:   at,
		CompletedAt: at,
		RecordedAt:  at,
		PrevHash:    "",
		ChainHash:   "hash-" + id,
	}
}

func TestMemoryStorage_AppendAssignsSeq(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	at := time.Now().UTC()

	first := memTestRecord("rec-1", "production", ledger.OutcomeSuccess, at)
	second := memTestRecord("rec-2", "production", ledger.OutcomeSuccess, at)

	if err := store.Append(ctx, first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, second); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("expected seq 1 and 2, got %d and %d", first.Seq, second.Seq)
	}
}

func TestMemoryStorage_AppendStoresCopy(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	rec := memTestRecord("rec-1", "production", ledger.OutcomeSuccess, time.Now().UTC())
	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rec.PoolName = "mutated-after-append"

	got, err := store.Last(ctx)
	if err != nil {
		t.Fatalf("Last failed: %v", err)
	}
	if got.PoolName != "production" {
		t.Errorf("stored record aliased caller memory: pool %q", got.PoolName)
	}
}

func TestMemoryStorage_QueryFilters(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	records := []*ledger.AttemptRecord{
		memTestRecord("rec-1", "production", ledger.OutcomeSuccess, base),
		memTestRecord("rec-2", "production", ledger.OutcomeExhausted, base.Add(time.Hour)),
		memTestRecord("rec-3", "staging", ledger.OutcomeSuccess, base.Add(2*time.Hour)),
	}
	for _, rec := range records {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	byPool, err := store.Query(ctx, ledger.Query{PoolName: "staging"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(byPool) != 1 || byPool[0].ID != "rec-3" {
		t.Errorf("pool filter returned wrong records: %+v", byPool)
	}

	byOutcome, err := store.Query(ctx, ledger.Query{Outcome: ledger.OutcomeExhausted})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(byOutcome) != 1 || byOutcome[0].ID != "rec-2" {
		t.Errorf("outcome filter returned wrong records: %+v", byOutcome)
	}

	cutoff := base.Add(30 * time.Minute)
	older, err := store.Query(ctx, ledger.Query{EndTime: &cutoff})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(older) != 1 || older[0].ID != "rec-1" {
		t.Errorf("time filter returned wrong records: %+v", older)
	}
}

func TestMemoryStorage_QuerySortAndPagination(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"rec-1", "rec-2", "rec-3", "rec-4"} {
		rec := memTestRecord(id, "production", ledger.OutcomeSuccess, base.Add(time.Duration(i)*time.Minute))
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// Default sort: recorded_at descending.
	newest, err := store.Query(ctx, ledger.Query{Limit: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(newest) != 1 || newest[0].ID != "rec-4" {
		t.Errorf("expected newest record first, got %+v", newest)
	}

	// Chain order: seq ascending with pagination.
	page, err := store.Query(ctx, ledger.Query{
		SortBy:    ledger.SortBySeq,
		SortOrder: ledger.SortOrderAsc,
		Limit:     2,
		Offset:    1,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "rec-2" || page[1].ID != "rec-3" {
		t.Errorf("expected rec-2 and rec-3, got %+v", page)
	}
}

func TestMemoryStorage_Delete(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"rec-1", "rec-2", "rec-3"} {
		rec := memTestRecord(id, "production", ledger.OutcomeSuccess, base.Add(time.Duration(i)*time.Hour))
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	cutoff := base.Add(90 * time.Minute)
	removed, err := store.Delete(ctx, ledger.Query{EndTime: &cutoff})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 records removed, got %d", removed)
	}

	count, err := store.Count(ctx, ledger.Query{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 record left, got %d", count)
	}
}

func TestMemoryStorage_LastEmpty(t *testing.T) {
	store := NewMemoryStorage()

	last, err := store.Last(context.Background())
	if err != nil {
		t.Fatalf("Last failed: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil for empty ledger, got %+v", last)
	}
}

func TestMemoryStorage_QueryStream(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"rec-1", "rec-2", "rec-3"} {
		rec := memTestRecord(id, "production", ledger.OutcomeSuccess, base.Add(time.Duration(i)*time.Minute))
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	records, errs, err := store.QueryStream(ctx, ledger.Query{
		SortBy:    ledger.SortBySeq,
		SortOrder: ledger.SortOrderAsc,
	})
	if err != nil {
		t.Fatalf("QueryStream failed: %v", err)
	}

	var ids []string
	for rec := range records {
		ids = append(ids, rec.ID)
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream reported error: %v", err)
	}

	want := []string{"rec-1", "rec-2", "rec-3"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(ids))
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("position %d: expected %s, got %s", i, id, ids[i])
		}
	}
}
