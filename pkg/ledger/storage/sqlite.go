package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"arclight-ai/ballast/pkg/ledger"
)

// SQLiteConfig contains configuration for the SQLite ledger storage.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns limits open connections. Default: 10.
	MaxOpenConns int

	// MaxIdleConns limits idle connections. Default: 5.
	MaxIdleConns int

	// WALMode enables write-ahead logging. Default: true.
	WALMode bool

	// BusyTimeout is how long a locked database is retried. Default: 5s.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default configuration for the given path.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:         path,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage persists attempt records in a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	config SQLiteConfig
}

// attemptColumns is the select list shared by every read path; scanRow must
// match its order.
const attemptColumns = `seq, id, request_id, pool_name, key_id, request_hash,
	attempts, status_code, outcome, error, error_kind, bytes_uploaded,
	total_delay_ns, started_at_ns, completed_at_ns, recorded_at_ns,
	prev_hash, chain_hash`

// NewSQLiteStorage opens (creating if necessary) the ledger database.
func NewSQLiteStorage(config SQLiteConfig) (*SQLiteStorage, error) {
	if config.Path == "" {
		return nil, ledger.NewStorageError("sqlite", "open", errors.New("database path is required"))
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 5
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ledger.NewStorageError("sqlite", "open", err)
		}
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{db: db, config: config}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize applies pragmas, creates the schema, and verifies its version.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return ledger.NewStorageError("sqlite", "initialize", err)
		}
	}
	busyMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyMs)); err != nil {
		return ledger.NewStorageError("sqlite", "initialize", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return ledger.NewStorageError("sqlite", "initialize", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return ledger.NewStorageError("sqlite", "initialize", err)
		}
	case err != nil:
		return ledger.NewStorageError("sqlite", "initialize", err)
	case version != SchemaVersion:
		return ledger.NewStorageError("sqlite", "initialize",
			fmt.Errorf("schema version mismatch: database has %d, expected %d", version, SchemaVersion))
	}

	return nil
}

// Append stores a record and assigns its Seq from the inserted row.
func (s *SQLiteStorage) Append(ctx context.Context, record *ledger.AttemptRecord) error {
	if record == nil {
		return ledger.NewStorageError("sqlite", "append", errors.New("record is nil"))
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attempt_records (
			id, request_id, pool_name, key_id, request_hash,
			attempts, status_code, outcome, error, error_kind, bytes_uploaded,
			total_delay_ns, started_at_ns, completed_at_ns, recorded_at_ns,
			prev_hash, chain_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		nullableString(record.RequestID),
		record.PoolName,
		nullableString(record.KeyID),
		nullableString(record.RequestHash),
		record.Attempts,
		nullableInt(int64(record.StatusCode)),
		record.Outcome,
		nullableString(record.Error),
		nullableString(record.ErrorKind),
		record.BytesUploaded,
		int64(record.TotalDelay),
		record.StartedAt.UTC().UnixNano(),
		record.CompletedAt.UTC().UnixNano(),
		record.RecordedAt.UTC().UnixNano(),
		record.PrevHash,
		record.ChainHash,
	)
	if err != nil {
		return ledger.NewStorageError("sqlite", "append", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return ledger.NewStorageError("sqlite", "append", err)
	}
	record.Seq = seq

	return nil
}

// Query returns records matching the query.
func (s *SQLiteStorage) Query(ctx context.Context, query ledger.Query) ([]*ledger.AttemptRecord, error) {
	where, args := buildWhereClause(query)
	sqlQuery := "SELECT " + attemptColumns + " FROM attempt_records" + where +
		orderClause(query) + limitClause(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var records []*ledger.AttemptRecord
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, ledger.NewStorageError("sqlite", "query", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// QueryStream returns matching records on a channel. The consumer should
// drain both channels; cancelling ctx stops the walk early.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query ledger.Query) (<-chan *ledger.AttemptRecord, <-chan error, error) {
	where, args := buildWhereClause(query)
	sqlQuery := "SELECT " + attemptColumns + " FROM attempt_records" + where +
		orderClause(query) + limitClause(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, nil, ledger.NewStorageError("sqlite", "query", err)
	}

	recordCh := make(chan *ledger.AttemptRecord)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordCh)
		defer close(errCh)
		defer rows.Close()

		for rows.Next() {
			record, err := scanRow(rows)
			if err != nil {
				errCh <- ledger.NewStorageError("sqlite", "query", err)
				return
			}
			select {
			case recordCh <- record:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- ledger.NewStorageError("sqlite", "query", err)
		}
	}()

	return recordCh, errCh, nil
}

// Count returns the number of records matching the query.
func (s *SQLiteStorage) Count(ctx context.Context, query ledger.Query) (int64, error) {
	where, args := buildWhereClause(query)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attempt_records"+where, args...).Scan(&count)
	if err != nil {
		return 0, ledger.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// Delete removes records matching the query and reports how many.
func (s *SQLiteStorage) Delete(ctx context.Context, query ledger.Query) (int64, error) {
	where, args := buildWhereClause(query)

	res, err := s.db.ExecContext(ctx, "DELETE FROM attempt_records"+where, args...)
	if err != nil {
		return 0, ledger.NewStorageError("sqlite", "delete", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, ledger.NewStorageError("sqlite", "delete", err)
	}

	return affected, nil
}

// Last returns the most recently appended record, or nil when empty.
func (s *SQLiteStorage) Last(ctx context.Context) (*ledger.AttemptRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+attemptColumns+" FROM attempt_records ORDER BY seq DESC LIMIT 1")

	record, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "last", err)
	}

	return record, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return ledger.NewStorageError("sqlite", "close", err)
	}
	return nil
}

// buildWhereClause translates query filters into SQL conditions.
func buildWhereClause(query ledger.Query) (string, []any) {
	var conditions []string
	var args []any

	if query.StartTime != nil {
		conditions = append(conditions, "recorded_at_ns >= ?")
		args = append(args, query.StartTime.UTC().UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "recorded_at_ns <= ?")
		args = append(args, query.EndTime.UTC().UnixNano())
	}
	if query.PoolName != "" {
		conditions = append(conditions, "pool_name = ?")
		args = append(args, query.PoolName)
	}
	if query.KeyID != "" {
		conditions = append(conditions, "key_id = ?")
		args = append(args, query.KeyID)
	}
	if query.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, query.Outcome)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// orderClause maps the query sort onto whitelisted columns. Unknown values
// fall back to the defaults rather than reaching the SQL text.
func orderClause(query ledger.Query) string {
	column := "recorded_at_ns"
	if query.SortBy == ledger.SortBySeq {
		column = "seq"
	}
	order := "DESC"
	if query.SortOrder == ledger.SortOrderAsc {
		order = "ASC"
	}
	return " ORDER BY " + column + " " + order
}

// limitClause applies pagination. A non-positive limit means unlimited;
// SQLite requires LIMIT -1 to express an offset without one.
func limitClause(query ledger.Query) string {
	switch {
	case query.Limit > 0 && query.Offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", query.Limit, query.Offset)
	case query.Limit > 0:
		return fmt.Sprintf(" LIMIT %d", query.Limit)
	case query.Offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", query.Offset)
	default:
		return ""
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRow reads one record in attemptColumns order.
func scanRow(row rowScanner) (*ledger.AttemptRecord, error) {
	var (
		record      ledger.AttemptRecord
		requestID   sql.NullString
		keyID       sql.NullString
		requestHash sql.NullString
		statusCode  sql.NullInt64
		errText     sql.NullString
		errorKind   sql.NullString
		totalDelay  int64
		startedAt   int64
		completedAt int64
		recordedAt  int64
	)

	err := row.Scan(
		&record.Seq,
		&record.ID,
		&requestID,
		&record.PoolName,
		&keyID,
		&requestHash,
		&record.Attempts,
		&statusCode,
		&record.Outcome,
		&errText,
		&errorKind,
		&record.BytesUploaded,
		&totalDelay,
		&startedAt,
		&completedAt,
		&recordedAt,
		&record.PrevHash,
		&record.ChainHash,
	)
	if err != nil {
		return nil, err
	}

	record.RequestID = requestID.String
	record.KeyID = keyID.String
	record.RequestHash = requestHash.String
	record.StatusCode = int(statusCode.Int64)
	record.Error = errText.String
	record.ErrorKind = errorKind.String
	record.TotalDelay = time.Duration(totalDelay)
	record.StartedAt = time.Unix(0, startedAt).UTC()
	record.CompletedAt = time.Unix(0, completedAt).UTC()
	record.RecordedAt = time.Unix(0, recordedAt).UTC()

	return &record, nil
}

// nullableString maps "" to NULL so optional columns stay queryable as such.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableInt maps 0 to NULL.
func nullableInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
