package ledger

import (
	"strings"
	"testing"
	"time"
)

func chainTestRecord() *AttemptRecord {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &AttemptRecord{
		ID:            "rec-1",
		RequestID:     "req-1",
		PoolName:      "production",
		KeyID:         "a1b2c3d4",
		RequestHash:   "cafe0123",
		Attempts:      2,
		StatusCode:    503,
		Outcome:       OutcomeExhausted,
		Error:         "service unavailable",
		ErrorKind:     ErrorKindStatus,
		BytesUploaded: 2048,
		TotalDelay:    1500 * time.Millisecond,
		StartedAt:     at,
		CompletedAt:   at.Add(3 * time.Second),
		RecordedAt:    at.Add(3 * time.Second),
	}
}

func TestChainHash_Deterministic(t *testing.T) {
	a := chainTestRecord()
	b := chainTestRecord()

	if ChainHash("prev", a) != ChainHash("prev", b) {
		t.Error("identical records produced different hashes")
	}
}

func TestChainHash_FormatIsHex(t *testing.T) {
	h := ChainHash("", chainTestRecord())
	if len(h) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(h))
	}
	if strings.ToLower(h) != h {
		t.Errorf("expected lowercase hex, got %q", h)
	}
}

func TestChainHash_DependsOnPrevHash(t *testing.T) {
	rec := chainTestRecord()
	if ChainHash("", rec) == ChainHash("other", rec) {
		t.Error("expected previous hash to influence chain hash")
	}
}

func TestChainHash_EveryFieldParticipates(t *testing.T) {
	base := ChainHash("prev", chainTestRecord())

	mutations := map[string]func(*AttemptRecord){
		"ID":            func(r *AttemptRecord) { r.ID = "rec-2" },
		"RequestID":     func(r *AttemptRecord) { r.RequestID = "req-2" },
		"PoolName":      func(r *AttemptRecord) { r.PoolName = "staging" },
		"KeyID":         func(r *AttemptRecord) { r.KeyID = "ffffffff" },
		"RequestHash":   func(r *AttemptRecord) { r.RequestHash = "deadbeef" },
		"Attempts":      func(r *AttemptRecord) { r.Attempts = 3 },
		"StatusCode":    func(r *AttemptRecord) { r.StatusCode = 500 },
		"Outcome":       func(r *AttemptRecord) { r.Outcome = OutcomeSuccess },
		"Error":         func(r *AttemptRecord) { r.Error = "gateway timeout" },
		"ErrorKind":     func(r *AttemptRecord) { r.ErrorKind = ErrorKindNetwork },
		"BytesUploaded": func(r *AttemptRecord) { r.BytesUploaded = 4096 },
		"TotalDelay":    func(r *AttemptRecord) { r.TotalDelay = 2 * time.Second },
		"StartedAt":     func(r *AttemptRecord) { r.StartedAt = r.StartedAt.Add(time.Nanosecond) },
		"CompletedAt":   func(r *AttemptRecord) { r.CompletedAt = r.CompletedAt.Add(time.Nanosecond) },
		"RecordedAt":    func(r *AttemptRecord) { r.RecordedAt = r.RecordedAt.Add(time.Nanosecond) },
	}

	for field, mutate := range mutations {
		rec := chainTestRecord()
		mutate(rec)
		if ChainHash("prev", rec) == base {
			t.Errorf("mutating %s did not change the chain hash", field)
		}
	}
}

func TestChainHash_SeqDoesNotParticipate(t *testing.T) {
	a := chainTestRecord()
	b := chainTestRecord()
	b.Seq = 99

	if ChainHash("prev", a) != ChainHash("prev", b) {
		t.Error("storage-assigned seq must not influence the chain hash")
	}
}

func TestChainHash_FieldBoundariesUnforgeable(t *testing.T) {
	// Shifting content between adjacent fields must change the hash even
	// when the concatenation reads the same.
	a := chainTestRecord()
	a.Error = "ab"
	a.ErrorKind = "c"

	b := chainTestRecord()
	b.Error = "a"
	b.ErrorKind = "bc"

	if ChainHash("prev", a) == ChainHash("prev", b) {
		t.Error("field boundary shift produced the same hash")
	}
}
