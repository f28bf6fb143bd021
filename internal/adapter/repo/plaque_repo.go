package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tabix-Group/rialtor-plaques/internal/domain"
)

// PlaqueJobRepositoryPG implements domain.PlaqueJobRepository on PostgreSQL.
//
// Schema:
//
//	CREATE TABLE plaque_jobs (
//	    id               TEXT PRIMARY KEY,
//	    owner_id         TEXT NOT NULL,
//	    title            TEXT NOT NULL DEFAULT '',
//	    description      TEXT NOT NULL DEFAULT '',
//	    property         JSONB NOT NULL,
//	    original_images  TEXT[] NOT NULL DEFAULT '{}',
//	    generated_images TEXT[] NOT NULL DEFAULT '{}',
//	    status           TEXT NOT NULL,
//	    error_info       JSONB,
//	    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PlaqueJobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewPlaqueJobRepository creates a job repository backed by PostgreSQL.
func NewPlaqueJobRepository(pool *pgxpool.Pool) *PlaqueJobRepositoryPG {
	return &PlaqueJobRepositoryPG{pool: pool}
}

// Create inserts the initial job record.
func (r *PlaqueJobRepositoryPG) Create(ctx context.Context, job *domain.PlaqueJob) error {
	property, err := json.Marshal(job.Property)
	if err != nil {
		return fmt.Errorf("marshal property data: %w", err)
	}
	query := `
INSERT INTO plaque_jobs (id, owner_id, title, description, property, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.OwnerID,
		job.Title,
		job.Description,
		property,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// SetGenerating records the persisted original URLs and moves the job to GENERATING.
func (r *PlaqueJobRepositoryPG) SetGenerating(ctx context.Context, jobID string, originals []string) error {
	query := `
UPDATE plaque_jobs
SET original_images = $2,
    status = $3,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, jobID, originals, domain.JobStatusGenerating)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Finalize writes the terminal state of the job.
func (r *PlaqueJobRepositoryPG) Finalize(ctx context.Context, jobID string, generated []string, status domain.JobStatus, errInfo *domain.ErrorInfo) error {
	var info []byte
	if errInfo != nil {
		var err error
		if info, err = json.Marshal(errInfo); err != nil {
			return fmt.Errorf("marshal error info: %w", err)
		}
	}
	if generated == nil {
		generated = []string{}
	}
	query := `
UPDATE plaque_jobs
SET generated_images = $2,
    status = $3,
    error_info = $4,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, jobID, generated, status, info)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *PlaqueJobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.PlaqueJob, error) {
	query := `
SELECT id, owner_id, title, description, property, original_images, generated_images, status, error_info, created_at, updated_at
FROM plaque_jobs
WHERE id = $1;
`
	job, err := scanJob(r.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListByOwner returns the owner's jobs, newest first.
func (r *PlaqueJobRepositoryPG) ListByOwner(ctx context.Context, ownerID string) ([]domain.PlaqueJob, error) {
	query := `
SELECT id, owner_id, title, description, property, original_images, generated_images, status, error_info, created_at, updated_at
FROM plaque_jobs
WHERE owner_id = $1
ORDER BY created_at DESC;
`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.PlaqueJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.PlaqueJob, error) {
	var (
		job      domain.PlaqueJob
		property []byte
		errInfo  []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Title,
		&job.Description,
		&property,
		&job.OriginalImages,
		&job.GeneratedImages,
		&job.Status,
		&errInfo,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(property, &job.Property); err != nil {
		return nil, fmt.Errorf("unmarshal property data: %w", err)
	}
	if len(errInfo) > 0 {
		job.ErrorInfo = &domain.ErrorInfo{}
		if err := json.Unmarshal(errInfo, job.ErrorInfo); err != nil {
			return nil, fmt.Errorf("unmarshal error info: %w", err)
		}
	}
	return &job, nil
}
