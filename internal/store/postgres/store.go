// Package postgres is the shared job store for deployments where several
// batch hosts report into one database.
package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/common"
	"github.com/labwise/medextract/internal/store"
)

const ddl = `
CREATE TABLE IF NOT EXISTS jobs (
	id            UUID PRIMARY KEY,
	source_dir    TEXT NOT NULL,
	status        TEXT NOT NULL,
	workbook_path TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS job_files (
	id             UUID PRIMARY KEY,
	job_id         UUID NOT NULL REFERENCES jobs(id),
	file_name      TEXT NOT NULL,
	status         TEXT NOT NULL,
	pages          INTEGER NOT NULL DEFAULT 0,
	external_calls INTEGER NOT NULL DEFAULT 0,
	conflicts      INTEGER NOT NULL DEFAULT 0,
	notes          TEXT NOT NULL DEFAULT '',
	elapsed_ms     BIGINT NOT NULL DEFAULT 0,
	UNIQUE (job_id, file_name)
);
CREATE TABLE IF NOT EXISTS inference_calls (
	id            UUID PRIMARY KEY,
	job_id        UUID NOT NULL REFERENCES jobs(id),
	file_name     TEXT NOT NULL,
	page          INTEGER NOT NULL,
	mode          TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	success       BOOLEAN NOT NULL DEFAULT false,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store wraps a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open creates the pool, pings it, and applies the schema.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, common.NewAppError("DB_OPEN", "parse dsn", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "medextract"

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, common.NewAppError("DB_OPEN", "connect", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, common.NewAppError("DB_OPEN", "ping", err)
	}
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, common.NewAppError("DB_MIGRATE", "apply schema", err)
	}

	logger.Info("successfully connected to database")
	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) CreateJob(ctx context.Context, job store.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, source_dir, status) VALUES ($1, $2, $3)`,
		job.ID, job.SourceDir, string(job.Status))
	return common.WrapError(err, "insert job")
}

func (s *Store) SetJobStatus(ctx context.Context, jobID uuid.UUID, status constants.JobStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1 WHERE id = $2`, string(status), jobID)
	return common.WrapError(err, "update job status")
}

func (s *Store) UpsertFile(ctx context.Context, f store.File) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO job_files (id, job_id, file_name, status, pages, external_calls, conflicts, notes, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id, file_name) DO UPDATE SET
			status = excluded.status,
			pages = excluded.pages,
			external_calls = excluded.external_calls,
			conflicts = excluded.conflicts,
			notes = excluded.notes,
			elapsed_ms = excluded.elapsed_ms`,
		f.ID, f.JobID, f.FileName, string(f.Status),
		f.Pages, f.ExternalCalls, f.Conflicts, f.Notes, f.ElapsedMS)
	return common.WrapError(err, "upsert job file")
}

func (s *Store) LogInferenceCall(ctx context.Context, c store.InferenceCall) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO inference_calls (id, job_id, file_name, page, mode, input_tokens, output_tokens, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.JobID, c.FileName, c.Page, c.Mode,
		c.InputTokens, c.OutputTokens, c.Success)
	return common.WrapError(err, "insert inference call")
}

func (s *Store) SaveWorkbookPath(ctx context.Context, jobID uuid.UUID, path string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET workbook_path = $1 WHERE id = $2`, path, jobID)
	return common.WrapError(err, "save workbook path")
}

func (s *Store) Close() {
	s.logger.Info("closing database connections")
	s.pool.Close()
}
