package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"arclight-ai/ballast/pkg/fingerprint"
	"arclight-ai/ballast/pkg/ledger"
	"arclight-ai/ballast/pkg/retry"
)

// Sentinel errors returned by Record, wrapped in a ledger.RecorderError.
var (
	// ErrClosed means the recorder was closed before the record was taken.
	ErrClosed = errors.New("recorder closed")

	// ErrBufferFull means the async buffer stayed full past WriteTimeout.
	ErrBufferFull = errors.New("record buffer full")
)

// Config contains configuration for the Recorder.
type Config struct {
	// Enabled turns recording on. A disabled recorder accepts calls and
	// does nothing.
	Enabled bool

	// AsyncBuffer is the record channel capacity. Default: 1000.
	AsyncBuffer int

	// WriteTimeout bounds both the wait for buffer space and each storage
	// write. Default: 5s.
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Attempt describes one completed dispatch from the caller's point of view.
// Key is the raw credential; the recorder stores only its sha256 short id.
type Attempt struct {
	// RequestID is the caller's correlation id. May be empty.
	RequestID string

	// Pool and Key identify which credential served the dispatch.
	Pool string
	Key  string

	// RequestHash is the request fingerprint, if the caller computed one.
	RequestHash string

	// Attempts is the number of tries the executor made.
	Attempts int

	// StatusCode is the final HTTP status. Zero means none; when the
	// final error carries a status code it is extracted automatically.
	StatusCode int

	// BytesUploaded is the payload size attributed to the dispatch.
	BytesUploaded int64

	// Err is the final error, nil on success.
	Err error

	// Timing of the dispatch as a whole.
	StartedAt   time.Time
	CompletedAt time.Time
	TotalDelay  time.Duration
}

// Recorder turns completed dispatches into chained ledger records, off the
// dispatch path. A single worker goroutine owns the chain head, so records
// are hashed and appended in a well-defined order.
type Recorder struct {
	storage ledger.Storage
	config  Config
	logger  *slog.Logger

	recordChan chan *ledger.AttemptRecord
	done       chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once

	// lastHash is the chain head. Worker goroutine only.
	lastHash string
}

// New creates a recorder writing to store and starts its worker. The chain
// head is seeded from the last persisted record so chains survive restarts.
// A disabled config yields an inert recorder; store may then be nil.
func New(store ledger.Storage, config Config, logger *slog.Logger) (*Recorder, error) {
	if !config.Enabled {
		return &Recorder{config: config}, nil
	}
	if store == nil {
		return nil, errors.New("recorder: storage is required when enabled")
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    store,
		config:     config,
		logger:     logger.With("component", "ledger_recorder"),
		recordChan: make(chan *ledger.AttemptRecord, config.AsyncBuffer),
		done:       make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.WriteTimeout)
	defer cancel()
	last, err := store.Last(ctx)
	if err != nil {
		return nil, err
	}
	if last != nil {
		r.lastHash = last.ChainHash
	}

	r.wg.Add(1)
	go r.run()

	return r, nil
}

// Enabled reports whether the recorder persists anything.
func (r *Recorder) Enabled() bool {
	return r.config.Enabled && r.storage != nil
}

// Record enqueues one completed dispatch. It returns quickly; persistence
// and chaining happen on the worker. When the buffer stays full past
// WriteTimeout the record is dropped and reported, never blocking dispatch
// indefinitely.
func (r *Recorder) Record(attempt Attempt) error {
	if !r.Enabled() {
		return nil
	}

	rec := r.buildRecord(attempt)

	select {
	case r.recordChan <- rec:
		return nil
	case <-time.After(r.config.WriteTimeout):
		r.logger.Warn("record buffer full, dropping attempt record",
			"record_id", rec.ID,
			"pool", rec.PoolName,
		)
		return ledger.NewRecorderError(rec.ID, ErrBufferFull)
	case <-r.done:
		return ledger.NewRecorderError(rec.ID, ErrClosed)
	}
}

// Close stops the worker after draining buffered records. Records offered
// concurrently with Close may be rejected with ErrClosed. The storage is
// not closed; the caller owns it.
func (r *Recorder) Close() error {
	if !r.Enabled() {
		return nil
	}

	r.closeOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()

	return nil
}

// buildRecord translates an Attempt into a ledger record, redacting the
// credential and classifying the failure.
func (r *Recorder) buildRecord(attempt Attempt) *ledger.AttemptRecord {
	rec := &ledger.AttemptRecord{
		ID:            uuid.NewString(),
		RequestID:     attempt.RequestID,
		PoolName:      attempt.Pool,
		RequestHash:   attempt.RequestHash,
		Attempts:      attempt.Attempts,
		StatusCode:    attempt.StatusCode,
		BytesUploaded: attempt.BytesUploaded,
		TotalDelay:    attempt.TotalDelay,
		StartedAt:     attempt.StartedAt,
		CompletedAt:   attempt.CompletedAt,
		RecordedAt:    time.Now().UTC(),
	}

	if attempt.Key != "" {
		rec.KeyID = fingerprint.ShortID(attempt.Key)
	}

	if attempt.Err == nil {
		rec.Outcome = ledger.OutcomeSuccess
		return rec
	}

	rec.Error = attempt.Err.Error()
	rec.Outcome = outcomeFor(attempt.Err)
	rec.ErrorKind = classifyError(attempt.Err)

	if rec.StatusCode == 0 {
		var sc retry.StatusCoder
		if errors.As(attempt.Err, &sc) {
			rec.StatusCode = sc.StatusCode()
		}
	}

	return rec
}

// run is the worker loop. It owns lastHash: records are chained and
// appended strictly in dequeue order.
func (r *Recorder) run() {
	defer r.wg.Done()

	for {
		select {
		case rec := <-r.recordChan:
			r.persist(rec)
		case <-r.done:
			// Drain whatever made it into the buffer before shutdown.
			for {
				select {
				case rec := <-r.recordChan:
					r.persist(rec)
				default:
					return
				}
			}
		}
	}
}

// persist chains and appends one record. On failure the chain head stays
// put so the next record still links to a persisted hash.
func (r *Recorder) persist(rec *ledger.AttemptRecord) {
	rec.PrevHash = r.lastHash
	rec.ChainHash = ledger.ChainHash(rec.PrevHash, rec)

	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Append(ctx, rec); err != nil {
		r.logger.Error("failed to persist attempt record",
			"record_id", rec.ID,
			"pool", rec.PoolName,
			"error", err,
		)
		return
	}

	if elapsed := time.Since(start); elapsed > r.config.WriteTimeout/2 {
		r.logger.Warn("slow ledger write",
			"record_id", rec.ID,
			"elapsed", elapsed,
		)
	}

	r.lastHash = rec.ChainHash
}

// outcomeFor maps the final error to a ledger outcome. Context expiry is an
// abort by the caller; everything else means retries ran out or the failure
// was never retryable.
func outcomeFor(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ledger.OutcomeAborted
	}
	return ledger.OutcomeExhausted
}

// classifyError labels the final error the way the executor classifies
// retryability: caller cancellation, status-carrying API errors, transport
// faults, then everything else.
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ledger.ErrorKindCanceled
	default:
		var sc retry.StatusCoder
		if errors.As(err, &sc) {
			return ledger.ErrorKindStatus
		}
		if retry.IsTransportFault(err) {
			return ledger.ErrorKindNetwork
		}
		return ledger.ErrorKindOther
	}
}
