package domain

import "context"

// PlaqueJobRepository defines persistence for plaque jobs. The pipeline
// writes a given job at most three times (create, generation start,
// finalize), always from a single owning goroutine.
type PlaqueJobRepository interface {
	Create(ctx context.Context, job *PlaqueJob) error
	SetGenerating(ctx context.Context, jobID string, originals []string) error
	Finalize(ctx context.Context, jobID string, generated []string, status JobStatus, errInfo *ErrorInfo) error
	GetByID(ctx context.Context, jobID string) (*PlaqueJob, error)
	ListByOwner(ctx context.Context, ownerID string) ([]PlaqueJob, error)
}
