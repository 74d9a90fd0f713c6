package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.ExtractionJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO extraction_jobs (id, model, prompt_version, confidence_threshold, status, total_cards, processed_cards, failed_cards, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, job.ID, job.Model, job.PromptVersion, job.ConfidenceThreshold, string(job.Status),
		job.TotalCards, job.ProcessedCards, job.FailedCards, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create extraction job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.ExtractionJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, model, prompt_version, confidence_threshold, status, total_cards, processed_cards, failed_cards, created_at, updated_at
FROM extraction_jobs
WHERE id = $1
`, id)

	var (
		job    domain.ExtractionJob
		status string
	)
	err := row.Scan(
		&job.ID, &job.Model, &job.PromptVersion, &job.ConfidenceThreshold, &status,
		&job.TotalCards, &job.ProcessedCards, &job.FailedCards, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE extraction_jobs
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

func (r *JobRepository) UpdateTotal(ctx context.Context, id string, total int) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE extraction_jobs
SET total_cards = $2, updated_at = $3
WHERE id = $1
`, id, total, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job total: %w", err)
	}
	return nil
}

func (r *JobRepository) UpdateProgress(ctx context.Context, id string, processed, failed int) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE extraction_jobs
SET processed_cards = $2, failed_cards = $3, updated_at = $4
WHERE id = $1
`, id, processed, failed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}
