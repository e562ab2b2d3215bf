// Package store persists batch jobs, per-document outcomes, and the external
// call ledger so a batch can be audited after the fact.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/labwise/medextract/constants"
)

// Job is one batch run over a directory of documents.
type Job struct {
	ID        uuid.UUID
	SourceDir string
	Status    constants.JobStatus
	CreatedAt time.Time
}

// File is one document's outcome within a job.
type File struct {
	ID            uuid.UUID
	JobID         uuid.UUID
	FileName      string
	Status        constants.DocStatus
	Pages         int
	ExternalCalls int
	Conflicts     int
	Notes         string
	ElapsedMS     int64
}

// InferenceCall is one external request, logged for cost accounting.
type InferenceCall struct {
	ID           uuid.UUID
	JobID        uuid.UUID
	FileName     string
	Page         int
	Mode         string // "text" or "image"
	InputTokens  int
	OutputTokens int
	Success      bool
}

// Store is the persistence contract. Implementations are safe for use from
// multiple document workers.
type Store interface {
	CreateJob(ctx context.Context, job Job) error
	SetJobStatus(ctx context.Context, jobID uuid.UUID, status constants.JobStatus) error
	UpsertFile(ctx context.Context, f File) error
	LogInferenceCall(ctx context.Context, c InferenceCall) error
	SaveWorkbookPath(ctx context.Context, jobID uuid.UUID, path string) error
	Close()
}
