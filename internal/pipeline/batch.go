package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/common"
	"github.com/labwise/medextract/internal/export"
	"github.com/labwise/medextract/internal/extract"
	"github.com/labwise/medextract/internal/record"
	"github.com/labwise/medextract/internal/store"
)

// Batch fans documents across a bounded worker pool. Parallelism lives at
// the document level only; within a document pages stay strictly sequential.
type Batch struct {
	decoder extract.PageDecoder
	orch    *Orchestrator
	jobs    store.Store
	cfg     common.BatchConfig
	logger  *slog.Logger
}

// NewBatch wires the batch runner.
func NewBatch(decoder extract.PageDecoder, orch *Orchestrator, jobs store.Store, cfg common.BatchConfig, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{decoder: decoder, orch: orch, jobs: jobs, cfg: cfg, logger: logger}
}

// Run processes every document and returns export rows in input order. A
// document failure becomes a failed row, never a batch failure; only context
// cancellation aborts the run.
func (b *Batch) Run(ctx context.Context, jobID uuid.UUID, paths []string, workRoot string) ([]export.Row, error) {
	rows := make([]export.Row, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			rows[i] = b.processOne(gctx, jobID, path, workRoot)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return rows, err
	}
	return rows, nil
}

func (b *Batch) processOne(ctx context.Context, jobID uuid.UUID, path, workRoot string) export.Row {
	name := filepath.Base(path)
	start := time.Now()
	log := b.logger.With("file", name)

	if b.cfg.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.DocumentTimeout)
		defer cancel()
	}

	fileID := uuid.New()
	b.upsert(ctx, store.File{ID: fileID, JobID: jobID, FileName: name, Status: constants.DocStatusProcessing})

	workDir := filepath.Join(workRoot, fileID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return b.failRow(ctx, fileID, jobID, name, err, start)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	pages, err := b.decoder.Decode(ctx, path, workDir)
	if err != nil {
		return b.failRow(ctx, fileID, jobID, name, err, start)
	}

	rec, stats, err := b.orch.ProcessDocument(ctx, pages, path)
	if err != nil {
		return b.failRow(ctx, fileID, jobID, name, err, start)
	}

	for _, out := range stats.PageOutcomes {
		if !out.ExternalCall {
			continue
		}
		b.logCall(ctx, store.InferenceCall{
			ID: uuid.New(), JobID: jobID, FileName: name,
			Page: out.Page, Mode: out.Mode,
			InputTokens: out.InputTokens, OutputTokens: out.OutputTokens,
			Success: out.FieldsAdded > 0,
		})
	}

	b.upsert(ctx, store.File{
		ID: fileID, JobID: jobID, FileName: name,
		Status:        stats.Status,
		Pages:         stats.Pages,
		ExternalCalls: stats.ExternalCalls,
		Conflicts:     stats.ConflictCount,
		Notes:         rec.NoteString(),
		ElapsedMS:     stats.Elapsed.Milliseconds(),
	})

	log.Info("file done", "status", stats.Status, "elapsed_ms", stats.Elapsed.Milliseconds())
	return export.Row{
		FileName:      name,
		Record:        rec,
		Status:        string(stats.Status),
		Pages:         stats.Pages,
		ExternalCalls: stats.ExternalCalls,
		Conflicts:     stats.ConflictCount,
		Issues:        stats.QualityIssues,
		Elapsed:       stats.Elapsed,
	}
}

// failRow builds the placeholder row for a document that never produced a
// record: the error taxonomy code becomes its extraction note.
func (b *Batch) failRow(ctx context.Context, fileID, jobID uuid.UUID, name string, err error, start time.Time) export.Row {
	b.logger.Error("file failed", "file", name, "error", err)

	rec := record.New()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		rec.AddNote(appErr.Code)
	} else {
		rec.AddNote(constants.NotePDFCorrupted)
	}
	record.Scorer{}.Score(rec)

	elapsed := time.Since(start)
	b.upsert(ctx, store.File{
		ID: fileID, JobID: jobID, FileName: name,
		Status:    constants.DocStatusFailed,
		Notes:     rec.NoteString(),
		ElapsedMS: elapsed.Milliseconds(),
	})
	return export.Row{
		FileName: name,
		Record:   rec,
		Status:   string(constants.DocStatusFailed),
		Elapsed:  elapsed,
	}
}

func (b *Batch) upsert(ctx context.Context, f store.File) {
	if err := b.jobs.UpsertFile(context.WithoutCancel(ctx), f); err != nil {
		b.logger.Error("store update failed", "file", f.FileName, "error", err)
	}
}

func (b *Batch) logCall(ctx context.Context, c store.InferenceCall) {
	if err := b.jobs.LogInferenceCall(context.WithoutCancel(ctx), c); err != nil {
		b.logger.Error("inference call log failed", "file", c.FileName, "error", err)
	}
}

