package storage

import (
	"context"
	"sort"
	"sync"

	"arclight-ai/ballast/pkg/ledger"
)

// MemoryStorage keeps attempt records in memory, in append order. Intended
// for tests and short-lived tooling; nothing survives the process.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*ledger.AttemptRecord
	nextSeq int64
}

// NewMemoryStorage creates an empty in-memory ledger.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{nextSeq: 1}
}

// Append stores a copy of the record and assigns its Seq.
func (s *MemoryStorage) Append(ctx context.Context, record *ledger.AttemptRecord) error {
	if err := ctx.Err(); err != nil {
		return ledger.NewStorageError("memory", "append", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record.Seq = s.nextSeq
	s.nextSeq++

	stored := *record
	s.records = append(s.records, &stored)

	return nil
}

// Query returns copies of records matching the query.
func (s *MemoryStorage) Query(ctx context.Context, query ledger.Query) ([]*ledger.AttemptRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewStorageError("memory", "query", err)
	}

	s.mu.RLock()
	matched := s.match(query)
	s.mu.RUnlock()

	sortRecords(matched, query)
	matched = paginate(matched, query)

	out := make([]*ledger.AttemptRecord, len(matched))
	for i, rec := range matched {
		copied := *rec
		out[i] = &copied
	}
	return out, nil
}

// QueryStream returns matching records on a channel.
func (s *MemoryStorage) QueryStream(ctx context.Context, query ledger.Query) (<-chan *ledger.AttemptRecord, <-chan error, error) {
	records, err := s.Query(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	recordCh := make(chan *ledger.AttemptRecord)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordCh)
		defer close(errCh)

		for _, rec := range records {
			select {
			case recordCh <- rec:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return recordCh, errCh, nil
}

// Count returns the number of records matching the query.
func (s *MemoryStorage) Count(ctx context.Context, query ledger.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, ledger.NewStorageError("memory", "count", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.match(query))), nil
}

// Delete removes records matching the query and reports how many.
func (s *MemoryStorage) Delete(ctx context.Context, query ledger.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, ledger.NewStorageError("memory", "delete", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*ledger.AttemptRecord
	var removed int64
	for _, rec := range s.records {
		if matchQuery(rec, query) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept

	return removed, nil
}

// Last returns a copy of the most recently appended record, or nil.
func (s *MemoryStorage) Last(ctx context.Context) (*ledger.AttemptRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewStorageError("memory", "last", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}
	last := *s.records[len(s.records)-1]
	return &last, nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}

// match returns the records matching query, in append order. Caller holds
// at least the read lock.
func (s *MemoryStorage) match(query ledger.Query) []*ledger.AttemptRecord {
	var matched []*ledger.AttemptRecord
	for _, rec := range s.records {
		if matchQuery(rec, query) {
			matched = append(matched, rec)
		}
	}
	return matched
}

// matchQuery applies the query's filters to one record.
func matchQuery(rec *ledger.AttemptRecord, query ledger.Query) bool {
	if query.StartTime != nil && rec.RecordedAt.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && rec.RecordedAt.After(*query.EndTime) {
		return false
	}
	if query.PoolName != "" && rec.PoolName != query.PoolName {
		return false
	}
	if query.KeyID != "" && rec.KeyID != query.KeyID {
		return false
	}
	if query.Outcome != "" && rec.Outcome != query.Outcome {
		return false
	}
	return true
}

// sortRecords orders matched records per the query's sort fields.
func sortRecords(records []*ledger.AttemptRecord, query ledger.Query) {
	asc := query.SortOrder == ledger.SortOrderAsc
	bySeq := query.SortBy == ledger.SortBySeq

	sort.SliceStable(records, func(i, j int) bool {
		if bySeq {
			if asc {
				return records[i].Seq < records[j].Seq
			}
			return records[i].Seq > records[j].Seq
		}
		if asc {
			return records[i].RecordedAt.Before(records[j].RecordedAt)
		}
		return records[j].RecordedAt.Before(records[i].RecordedAt)
	})
}

// paginate applies Offset and Limit after sorting.
func paginate(records []*ledger.AttemptRecord, query ledger.Query) []*ledger.AttemptRecord {
	if query.Offset > 0 {
		if query.Offset >= len(records) {
			return nil
		}
		records = records[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(records) {
		records = records[:query.Limit]
	}
	return records
}
