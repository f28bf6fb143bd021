package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Tabix-Group/rialtor-plaques/internal/domain"
)

// PlaqueJobRepositoryMem is an in-memory domain.PlaqueJobRepository used in
// development mode and by tests.
type PlaqueJobRepositoryMem struct {
	mu   sync.RWMutex
	jobs map[string]domain.PlaqueJob
}

func NewMemoryPlaqueJobRepository() *PlaqueJobRepositoryMem {
	return &PlaqueJobRepositoryMem{jobs: make(map[string]domain.PlaqueJob)}
}

func (r *PlaqueJobRepositoryMem) Create(ctx context.Context, job *domain.PlaqueJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = cloneJob(*job)
	return nil
}

func (r *PlaqueJobRepositoryMem) SetGenerating(ctx context.Context, jobID string, originals []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.OriginalImages = append([]string(nil), originals...)
	job.Status = domain.JobStatusGenerating
	job.UpdatedAt = time.Now().UTC()
	r.jobs[jobID] = job
	return nil
}

func (r *PlaqueJobRepositoryMem) Finalize(ctx context.Context, jobID string, generated []string, status domain.JobStatus, errInfo *domain.ErrorInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.GeneratedImages = append([]string(nil), generated...)
	job.Status = status
	if errInfo != nil {
		copied := *errInfo
		job.ErrorInfo = &copied
	}
	job.UpdatedAt = time.Now().UTC()
	r.jobs[jobID] = job
	return nil
}

func (r *PlaqueJobRepositoryMem) GetByID(ctx context.Context, jobID string) (*domain.PlaqueJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := cloneJob(job)
	return &copied, nil
}

func (r *PlaqueJobRepositoryMem) ListByOwner(ctx context.Context, ownerID string) ([]domain.PlaqueJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var jobs []domain.PlaqueJob
	for _, job := range r.jobs {
		if job.OwnerID == ownerID {
			jobs = append(jobs, cloneJob(job))
		}
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.After(jobs[b].CreatedAt) })
	return jobs, nil
}

// Len reports the number of stored jobs.
func (r *PlaqueJobRepositoryMem) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func cloneJob(job domain.PlaqueJob) domain.PlaqueJob {
	job.OriginalImages = append([]string(nil), job.OriginalImages...)
	job.GeneratedImages = append([]string(nil), job.GeneratedImages...)
	if job.ErrorInfo != nil {
		copied := *job.ErrorInfo
		job.ErrorInfo = &copied
	}
	return job
}
