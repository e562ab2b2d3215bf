// Package sqlite is the default embedded job store. Schema is applied on
// open; WAL mode keeps concurrent worker writes cheap.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/common"
	"github.com/labwise/medextract/internal/store"
)

const ddl = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	source_dir    TEXT NOT NULL,
	status        TEXT NOT NULL,
	workbook_path TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS job_files (
	id             TEXT PRIMARY KEY,
	job_id         TEXT NOT NULL REFERENCES jobs(id),
	file_name      TEXT NOT NULL,
	status         TEXT NOT NULL,
	pages          INTEGER NOT NULL DEFAULT 0,
	external_calls INTEGER NOT NULL DEFAULT 0,
	conflicts      INTEGER NOT NULL DEFAULT 0,
	notes          TEXT NOT NULL DEFAULT '',
	elapsed_ms     INTEGER NOT NULL DEFAULT 0,
	UNIQUE (job_id, file_name)
);
CREATE TABLE IF NOT EXISTS inference_calls (
	id            TEXT PRIMARY KEY,
	job_id        TEXT NOT NULL REFERENCES jobs(id),
	file_name     TEXT NOT NULL,
	page          INTEGER NOT NULL,
	mode          TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	success       INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store wraps a database/sql handle on the modernc driver.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewAppError("DB_OPEN", "open sqlite database", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, common.NewAppError("DB_OPEN", "set sqlite pragmas", err)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, common.NewAppError("DB_MIGRATE", "apply schema", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateJob(ctx context.Context, job store.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, source_dir, status) VALUES (?, ?, ?)`,
		job.ID.String(), job.SourceDir, string(job.Status))
	return common.WrapError(err, "insert job")
}

func (s *Store) SetJobStatus(ctx context.Context, jobID uuid.UUID, status constants.JobStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ? WHERE id = ?`, string(status), jobID.String())
	return common.WrapError(err, "update job status")
}

func (s *Store) UpsertFile(ctx context.Context, f store.File) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_files (id, job_id, file_name, status, pages, external_calls, conflicts, notes, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id, file_name) DO UPDATE SET
			status = excluded.status,
			pages = excluded.pages,
			external_calls = excluded.external_calls,
			conflicts = excluded.conflicts,
			notes = excluded.notes,
			elapsed_ms = excluded.elapsed_ms`,
		f.ID.String(), f.JobID.String(), f.FileName, string(f.Status),
		f.Pages, f.ExternalCalls, f.Conflicts, f.Notes, f.ElapsedMS)
	return common.WrapError(err, "upsert job file")
}

func (s *Store) LogInferenceCall(ctx context.Context, c store.InferenceCall) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inference_calls (id, job_id, file_name, page, mode, input_tokens, output_tokens, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.JobID.String(), c.FileName, c.Page, c.Mode,
		c.InputTokens, c.OutputTokens, boolToInt(c.Success))
	return common.WrapError(err, "insert inference call")
}

func (s *Store) SaveWorkbookPath(ctx context.Context, jobID uuid.UUID, path string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET workbook_path = ? WHERE id = ?`, path, jobID.String())
	return common.WrapError(err, "save workbook path")
}

func (s *Store) Close() {
	_ = s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
