package ledger

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorTypes_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{"storage", NewStorageError("sqlite", "append", cause), []string{"sqlite", "append", "disk full"}},
		{"recorder", NewRecorderError("rec-9", cause), []string{"rec-9", "disk full"}},
		{"retention", NewRetentionError("age", cause), []string{"age", "disk full"}},
		{"export", NewExportError("csv", 12, cause), []string{"csv", "12", "disk full"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("expected message to contain %q, got %q", want, msg)
				}
			}
			if !errors.Is(tt.err, cause) {
				t.Error("expected errors.Is to reach the cause")
			}
		})
	}
}

func TestErrorTypes_As(t *testing.T) {
	err := error(NewStorageError("memory", "query", errors.New("boom")))

	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatal("expected errors.As to match *StorageError")
	}
	if storageErr.Backend != "memory" {
		t.Errorf("expected backend %q, got %q", "memory", storageErr.Backend)
	}
}
