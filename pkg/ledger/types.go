package ledger

import (
	"context"
	"io"
	"time"
)

// Outcome values for a recorded dispatch.
const (
	// OutcomeSuccess means the operation eventually returned a value.
	OutcomeSuccess = "success"
	// OutcomeExhausted means the retry budget or retryability ran out.
	OutcomeExhausted = "exhausted"
	// OutcomeAborted means the caller's context ended the dispatch.
	OutcomeAborted = "aborted"
)

// ErrorKind values classifying the final failure.
const (
	ErrorKindStatus   = "status"
	ErrorKindNetwork  = "network"
	ErrorKindCanceled = "canceled"
	ErrorKindOther    = "other"
)

// Sort field and order values accepted by Query.
const (
	SortByRecordedAt = "recorded_at"
	SortBySeq        = "seq"
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
)

// AttemptRecord is the audit trail entry for one completed dispatch: which
// pool and credential served it, how many tries it took, how it ended, and
// the hash linking it to the previous entry.
type AttemptRecord struct {
	// Identification
	Seq       int64  `json:"seq,omitempty"` // assigned by storage on append
	ID        string `json:"id"`
	RequestID string `json:"request_id,omitempty"`

	// Dispatch context. KeyID is the credential's sha256 short id; raw
	// credentials never reach a record.
	PoolName    string `json:"pool_name"`
	KeyID       string `json:"key_id,omitempty"`
	RequestHash string `json:"request_hash,omitempty"`

	// Outcome
	Attempts      int    `json:"attempts"`
	StatusCode    int    `json:"status_code,omitempty"`
	Outcome       string `json:"outcome"`
	Error         string `json:"error,omitempty"`
	ErrorKind     string `json:"error_kind,omitempty"`
	BytesUploaded int64  `json:"bytes_uploaded,omitempty"`

	// Timing
	TotalDelay  time.Duration `json:"total_delay,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	RecordedAt  time.Time     `json:"recorded_at"`

	// Chain
	PrevHash  string `json:"prev_hash"`
	ChainHash string `json:"chain_hash"`
}

// Query describes filter criteria for reading records. Zero-value fields do
// not filter; a Limit of zero or less returns everything that matches.
type Query struct {
	// Time range filters on RecordedAt (inclusive).
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Exact-match filters.
	PoolName string `json:"pool_name,omitempty"`
	KeyID    string `json:"key_id,omitempty"`
	Outcome  string `json:"outcome,omitempty"`

	// Pagination.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting. SortBy defaults to recorded_at, SortOrder to desc. Chain
	// verification reads seq ascending.
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage persists attempt records. Implementations must preserve append
// order under the seq sort so the hash chain can be replayed.
type Storage interface {
	// Append stores a record and assigns its Seq.
	Append(ctx context.Context, record *AttemptRecord) error

	// Query returns records matching the query.
	Query(ctx context.Context, query Query) ([]*AttemptRecord, error)

	// QueryStream returns matching records on a channel, for result sets
	// too large to hold in memory. Both channels close when the walk ends.
	QueryStream(ctx context.Context, query Query) (<-chan *AttemptRecord, <-chan error, error)

	// Count returns the number of records matching the query.
	Count(ctx context.Context, query Query) (int64, error)

	// Delete removes records matching the query and reports how many.
	Delete(ctx context.Context, query Query) (int64, error)

	// Last returns the most recently appended record, or nil when the
	// ledger is empty.
	Last(ctx context.Context) (*AttemptRecord, error)

	// Close releases storage resources.
	Close() error
}

// Exporter serializes records to a writer.
type Exporter interface {
	Export(ctx context.Context, records []*AttemptRecord, w io.Writer) error
}
