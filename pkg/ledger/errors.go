package ledger

import "fmt"

// StorageError wraps a failure inside a storage backend.
type StorageError struct {
	// Backend identifies the implementation ("sqlite", "memory").
	Backend string

	// Operation is the storage method that failed.
	Operation string

	// Cause is the underlying error.
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage %s: %s failed: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// RecorderError wraps a failure to record an attempt.
type RecorderError struct {
	// RecordID is the id of the record that could not be handled.
	RecordID string

	// Cause is the underlying error.
	Cause error
}

func (e *RecorderError) Error() string {
	return fmt.Sprintf("ledger recorder: record %s: %v", e.RecordID, e.Cause)
}

func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a RecorderError.
func NewRecorderError(recordID string, cause error) *RecorderError {
	return &RecorderError{RecordID: recordID, Cause: cause}
}

// RetentionError wraps a failure during retention pruning.
type RetentionError struct {
	// Phase is the pruning phase that failed ("age", "count", "archive").
	Phase string

	// Cause is the underlying error.
	Cause error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("ledger retention: %s phase failed: %v", e.Phase, e.Cause)
}

func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a RetentionError.
func NewRetentionError(phase string, cause error) *RetentionError {
	return &RetentionError{Phase: phase, Cause: cause}
}

// ExportError wraps a failure while serializing records.
type ExportError struct {
	// Format is the export format that failed ("json", "csv").
	Format string

	// RecordCount is how many records were being exported.
	RecordCount int

	// Cause is the underlying error.
	Cause error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("ledger export %s: %d records: %v", e.Format, e.RecordCount, e.Cause)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates an ExportError.
func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{Format: format, RecordCount: recordCount, Cause: cause}
}
