package export

import (
	"context"
	"encoding/json"
	"io"

	"arclight-ai/ballast/pkg/ledger"
)

// streamFlushInterval is how many records go between flushes when the
// destination writer supports flushing.
const streamFlushInterval = 100

// flusher is satisfied by bufio.Writer and friends.
type flusher interface {
	Flush() error
}

// JSONExporter serializes attempt records as JSON.
type JSONExporter struct {
	// Pretty enables indented output.
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records to w: one record as a single object, several as an
// array, none as an empty array.
func (e *JSONExporter) Export(ctx context.Context, records []*ledger.AttemptRecord, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return ledger.NewExportError("json", len(records), err)
	}

	if len(records) == 0 {
		if _, err := io.WriteString(w, "[]\n"); err != nil {
			return ledger.NewExportError("json", 0, err)
		}
		return nil
	}

	var payload any = records
	if len(records) == 1 {
		payload = records[0]
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return ledger.NewExportError("json", len(records), err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return ledger.NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream writes a JSON array incrementally as records arrive,
// flushing periodically when w supports it. It returns how many records
// were written. Output is always compact; Pretty applies to Export only.
func (e *JSONExporter) ExportStream(ctx context.Context, records <-chan *ledger.AttemptRecord, w io.Writer) (int, error) {
	count := 0

	if _, err := io.WriteString(w, "["); err != nil {
		return 0, ledger.NewExportError("json", count, err)
	}

	for rec := range records {
		if err := ctx.Err(); err != nil {
			return count, ledger.NewExportError("json", count, err)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return count, ledger.NewExportError("json", count, err)
		}

		if count > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return count, ledger.NewExportError("json", count, err)
			}
		}
		if _, err := w.Write(data); err != nil {
			return count, ledger.NewExportError("json", count, err)
		}
		count++

		if count%streamFlushInterval == 0 {
			if f, ok := w.(flusher); ok {
				if err := f.Flush(); err != nil {
					return count, ledger.NewExportError("json", count, err)
				}
			}
		}
	}

	if _, err := io.WriteString(w, "]\n"); err != nil {
		return count, ledger.NewExportError("json", count, err)
	}
	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return count, ledger.NewExportError("json", count, err)
		}
	}

	return count, nil
}
