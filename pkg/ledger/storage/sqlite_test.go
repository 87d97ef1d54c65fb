package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"arclight-ai/ballast/pkg/ledger"
)

func newTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(DefaultSQLiteConfig(filepath.Join(t.TempDir(), "ledger.db")))
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStorage(SQLiteConfig{})
	if err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSQLiteStorage_RoundTripAllFields(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 14, 9, 30, 0, 123456789, time.UTC)
	rec := &ledger.AttemptRecord{
		ID:            "rec-1",
		RequestID:     "req-1",
		PoolName:      "production",
		KeyID:         "a1b2c3d4",
		RequestHash:   "cafe0123",
		Attempts:      3,
		StatusCode:    503,
		Outcome:       ledger.OutcomeExhausted,
		Error:         "service unavailable",
		ErrorKind:     ledger.ErrorKindStatus,
		BytesUploaded: 2048,
		TotalDelay:    1500 * time.Millisecond,
		StartedAt:     at,
		CompletedAt:   at.Add(3 * time.Second),
		RecordedAt:    at.Add(3 * time.Second),
		PrevHash:      "",
	}
	rec.ChainHash = ledger.ChainHash("", rec)

	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if rec.Seq == 0 {
		t.Error("expected Append to assign a non-zero seq")
	}

	got, err := store.Last(ctx)
	if err != nil {
		t.Fatalf("Last failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a record")
	}

	if got.ID != rec.ID || got.RequestID != rec.RequestID || got.PoolName != rec.PoolName {
		t.Errorf("identity fields did not round-trip: %+v", got)
	}
	if got.KeyID != rec.KeyID || got.RequestHash != rec.RequestHash {
		t.Errorf("dispatch fields did not round-trip: %+v", got)
	}
	if got.Attempts != rec.Attempts || got.StatusCode != rec.StatusCode || got.Outcome != rec.Outcome {
		t.Errorf("outcome fields did not round-trip: %+v", got)
	}
	if got.Error != rec.Error || got.ErrorKind != rec.ErrorKind || got.BytesUploaded != rec.BytesUploaded {
		t.Errorf("failure fields did not round-trip: %+v", got)
	}
	if got.TotalDelay != rec.TotalDelay {
		t.Errorf("expected total delay %v, got %v", rec.TotalDelay, got.TotalDelay)
	}
	if !got.StartedAt.Equal(rec.StartedAt) || !got.CompletedAt.Equal(rec.CompletedAt) || !got.RecordedAt.Equal(rec.RecordedAt) {
		t.Errorf("timestamps did not round-trip to the nanosecond: %+v", got)
	}

	// The reloaded record must still hash to its stored chain hash.
	if ledger.ChainHash(got.PrevHash, got) != got.ChainHash {
		t.Error("reloaded record no longer matches its chain hash")
	}
}

func TestSQLiteStorage_SeqPreservesAppendOrder(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// Recorded-at values deliberately out of order; seq must still follow
	// append order.
	times := []time.Time{base.Add(2 * time.Hour), base, base.Add(time.Hour)}
	for i, at := range times {
		rec := memTestRecord("rec-"+string(rune('1'+i)), "production", ledger.OutcomeSuccess, at)
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	records, err := store.Query(ctx, ledger.Query{SortBy: ledger.SortBySeq, SortOrder: ledger.SortOrderAsc})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.Seq != int64(i+1) {
			t.Errorf("position %d: expected seq %d, got %d", i, i+1, rec.Seq)
		}
	}
	if records[0].ID != "rec-1" || records[2].ID != "rec-3" {
		t.Errorf("seq order does not match append order: %+v", records)
	}
}

func TestSQLiteStorage_QueryFiltersAndPagination(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	seed := []struct {
		id      string
		pool    string
		outcome string
		at      time.Time
	}{
		{"rec-1", "production", ledger.OutcomeSuccess, base},
		{"rec-2", "production", ledger.OutcomeExhausted, base.Add(time.Hour)},
		{"rec-3", "staging", ledger.OutcomeSuccess, base.Add(2 * time.Hour)},
		{"rec-4", "production", ledger.OutcomeSuccess, base.Add(3 * time.Hour)},
	}
	for _, s := range seed {
		if err := store.Append(ctx, memTestRecord(s.id, s.pool, s.outcome, s.at)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	production, err := store.Query(ctx, ledger.Query{PoolName: "production"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(production) != 3 {
		t.Errorf("expected 3 production records, got %d", len(production))
	}

	start := base.Add(30 * time.Minute)
	end := base.Add(150 * time.Minute)
	window, err := store.Query(ctx, ledger.Query{StartTime: &start, EndTime: &end})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(window) != 2 {
		t.Errorf("expected 2 records in window, got %d", len(window))
	}

	page, err := store.Query(ctx, ledger.Query{
		SortBy:    ledger.SortBySeq,
		SortOrder: ledger.SortOrderAsc,
		Limit:     2,
		Offset:    2,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "rec-3" || page[1].ID != "rec-4" {
		t.Errorf("pagination returned wrong page: %+v", page)
	}

	count, err := store.Count(ctx, ledger.Query{Outcome: ledger.OutcomeExhausted})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 exhausted record, got %d", count)
	}
}

func TestSQLiteStorage_Delete(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := memTestRecord("rec-"+string(rune('1'+i)), "production", ledger.OutcomeSuccess, base.Add(time.Duration(i)*time.Hour))
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

	remaining, err := store.Count(ctx, ledger.Query{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if remaining != 1 {
		t.Errorf("expected 1 record remaining, got %d", remaining)
	}
}

func TestSQLiteStorage_LastEmptyReturnsNil(t *testing.T) {
	store := newTestSQLite(t)

	last, err := store.Last(context.Background())
	if err != nil {
		t.Fatalf("Last failed: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil for empty ledger, got %+v", last)
	}
}

func TestSQLiteStorage_QueryStream(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := memTestRecord("rec-"+string(rune('1'+i)), "production", ledger.OutcomeSuccess, base.Add(time.Duration(i)*time.Minute))
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

	count := 0
	lastSeq := int64(0)
	for rec := range records {
		count++
		if rec.Seq <= lastSeq {
			t.Errorf("stream out of seq order: %d after %d", rec.Seq, lastSeq)
		}
		lastSeq = rec.Seq
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream reported error: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 streamed records, got %d", count)
	}
}

func TestSQLiteStorage_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(DefaultSQLiteConfig(path))
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	rec := memTestRecord("rec-1", "production", ledger.OutcomeSuccess, time.Now().UTC())
	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStorage(DefaultSQLiteConfig(path))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	last, err := reopened.Last(ctx)
	if err != nil {
		t.Fatalf("Last failed: %v", err)
	}
	if last == nil || last.ID != "rec-1" {
		t.Errorf("expected persisted record after reopen, got %+v", last)
	}
}
