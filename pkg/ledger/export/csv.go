package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"arclight-ai/ballast/pkg/ledger"
)

// CSVExporter serializes attempt records as CSV, one row per record.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes records to w.
func (e *CSVExporter) Export(ctx context.Context, records []*ledger.AttemptRecord, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return ledger.NewExportError("csv", len(records), err)
	}

	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return ledger.NewExportError("csv", len(records), err)
		}
	}

	for _, rec := range records {
		if err := writer.Write(recordToRow(rec)); err != nil {
			return ledger.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return ledger.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes rows as records arrive, flushing periodically. It
// returns how many records were written.
func (e *CSVExporter) ExportStream(ctx context.Context, records <-chan *ledger.AttemptRecord, w io.Writer) (int, error) {
	writer := csv.NewWriter(w)
	count := 0

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return 0, ledger.NewExportError("csv", 0, err)
		}
	}

	for rec := range records {
		if err := ctx.Err(); err != nil {
			return count, ledger.NewExportError("csv", count, err)
		}

		if err := writer.Write(recordToRow(rec)); err != nil {
			return count, ledger.NewExportError("csv", count, err)
		}
		count++

		if count%streamFlushInterval == 0 {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return count, ledger.NewExportError("csv", count, err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return count, ledger.NewExportError("csv", count, err)
	}
	return count, nil
}

// headerRow names the columns; recordToRow must match its order.
func headerRow() []string {
	return []string{
		"seq", "id", "request_id", "pool_name", "key_id", "request_hash",
		"attempts", "status_code", "outcome", "error", "error_kind",
		"bytes_uploaded", "total_delay",
		"started_at", "completed_at", "recorded_at",
		"prev_hash", "chain_hash",
	}
}

// recordToRow flattens one record into CSV fields.
func recordToRow(rec *ledger.AttemptRecord) []string {
	return []string{
		strconv.FormatInt(rec.Seq, 10),
		rec.ID,
		rec.RequestID,
		rec.PoolName,
		rec.KeyID,
		rec.RequestHash,
		strconv.Itoa(rec.Attempts),
		strconv.Itoa(rec.StatusCode),
		rec.Outcome,
		rec.Error,
		rec.ErrorKind,
		strconv.FormatInt(rec.BytesUploaded, 10),
		rec.TotalDelay.String(),
		formatTime(rec.StartedAt),
		formatTime(rec.CompletedAt),
		formatTime(rec.RecordedAt),
		rec.PrevHash,
		rec.ChainHash,
	}
}

// formatTime renders a timestamp, leaving unset times empty.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
