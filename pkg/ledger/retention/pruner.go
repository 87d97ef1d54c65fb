package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"arclight-ai/ballast/pkg/ledger"
	"arclight-ai/ballast/pkg/ledger/export"
)

// Config contains retention configuration for the attempt ledger.
type Config struct {
	// RetentionDays removes records older than this many days. 0 disables
	// the age phase.
	RetentionDays int

	// MaxRecords caps the ledger size; the oldest records beyond it are
	// removed. 0 disables the count phase.
	MaxRecords int64

	// PruneSchedule is the cron expression the Scheduler runs on.
	PruneSchedule string

	// ArchiveBeforeDelete exports records to a JSON file before removal.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory archive files are written to.
	ArchivePath string
}

// Result reports what one pruning pass did.
type Result struct {
	// AgePruned is how many records the age phase removed.
	AgePruned int64

	// CountPruned is how many records the count phase removed.
	CountPruned int64

	// ArchiveFiles lists archives written during the pass.
	ArchiveFiles []string
}

// Pruner applies the retention policy to a ledger.
type Pruner struct {
	storage ledger.Storage
	config  Config
	logger  *slog.Logger
}

// NewPruner creates a pruner. Archiving requires an archive path.
func NewPruner(storage ledger.Storage, config Config, logger *slog.Logger) (*Pruner, error) {
	if storage == nil {
		return nil, errors.New("retention: storage is required")
	}
	if config.RetentionDays < 0 {
		return nil, fmt.Errorf("retention: retention days must not be negative, got %d", config.RetentionDays)
	}
	if config.MaxRecords < 0 {
		return nil, fmt.Errorf("retention: max records must not be negative, got %d", config.MaxRecords)
	}
	if config.ArchiveBeforeDelete && config.ArchivePath == "" {
		return nil, errors.New("retention: archive path is required when archiving is enabled")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "ledger_retention"),
	}, nil
}

// Prune runs the age phase then the count phase. Pruning removes the oldest
// end of the chain; verification afterwards anchors at the oldest retained
// record. Records sharing the cutoff instant leave together.
func (p *Pruner) Prune(ctx context.Context) (*Result, error) {
	result := &Result{}

	if p.config.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)
		pruned, err := p.pruneBefore(ctx, cutoff, "age", result)
		if err != nil {
			return result, err
		}
		result.AgePruned = pruned
	}

	if p.config.MaxRecords > 0 {
		pruned, err := p.pruneExcess(ctx, result)
		if err != nil {
			return result, err
		}
		result.CountPruned = pruned
	}

	if result.AgePruned > 0 || result.CountPruned > 0 {
		p.logger.Info("ledger pruned",
			"age_pruned", result.AgePruned,
			"count_pruned", result.CountPruned,
			"archives", len(result.ArchiveFiles),
		)
	}

	return result, nil
}

// pruneBefore archives (when configured) and deletes every record recorded
// at or before cutoff.
func (p *Pruner) pruneBefore(ctx context.Context, cutoff time.Time, phase string, result *Result) (int64, error) {
	query := ledger.Query{EndTime: &cutoff}

	if p.config.ArchiveBeforeDelete {
		file, err := p.archive(ctx, query, phase)
		if err != nil {
			return 0, err
		}
		if file != "" {
			result.ArchiveFiles = append(result.ArchiveFiles, file)
		}
	}

	pruned, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, ledger.NewRetentionError(phase, err)
	}
	return pruned, nil
}

// pruneExcess trims the ledger back to MaxRecords by removing the oldest
// records beyond the cap.
func (p *Pruner) pruneExcess(ctx context.Context, result *Result) (int64, error) {
	total, err := p.storage.Count(ctx, ledger.Query{})
	if err != nil {
		return 0, ledger.NewRetentionError("count", err)
	}
	if total <= p.config.MaxRecords {
		return 0, nil
	}

	excess := total - p.config.MaxRecords
	oldest, err := p.storage.Query(ctx, ledger.Query{
		SortBy:    ledger.SortBySeq,
		SortOrder: ledger.SortOrderAsc,
		Limit:     int(excess),
	})
	if err != nil {
		return 0, ledger.NewRetentionError("count", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	cutoff := oldest[len(oldest)-1].RecordedAt
	return p.pruneBefore(ctx, cutoff, "count", result)
}

// archive exports the records the query matches to a dated JSON file in the
// archive directory. No file is written when nothing matches.
func (p *Pruner) archive(ctx context.Context, query ledger.Query, phase string) (string, error) {
	query.SortBy = ledger.SortBySeq
	query.SortOrder = ledger.SortOrderAsc

	records, err := p.storage.Query(ctx, query)
	if err != nil {
		return "", ledger.NewRetentionError("archive", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return "", ledger.NewRetentionError("archive", err)
	}

	name := fmt.Sprintf("ledger-archive-%s-%s.json", phase, time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(p.config.ArchivePath, name)

	f, err := os.Create(path)
	if err != nil {
		return "", ledger.NewRetentionError("archive", err)
	}
	defer f.Close()

	exporter := export.NewJSONExporter(false)
	if err := exporter.Export(ctx, records, f); err != nil {
		return "", ledger.NewRetentionError("archive", err)
	}

	p.logger.Debug("archived records before pruning",
		"file", path,
		"records", len(records),
	)
	return path, nil
}
