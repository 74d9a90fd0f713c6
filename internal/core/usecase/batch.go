package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/deckhaven/cardsearch/internal/core/domain"
	"github.com/deckhaven/cardsearch/internal/core/ports"
)

// BatchConfig controls bulk extraction throughput. Rate limits are global to
// the provider account, so extra workers only help when the shared token
// budget (CallsPerMinute) has headroom; the default is one call at a time.
type BatchConfig struct {
	Workers        int
	CallsPerMinute int
	MaxCards       int
}

func (c BatchConfig) normalize() BatchConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.CallsPerMinute <= 0 {
		c.CallsPerMinute = 30
	}
	if c.MaxCards <= 0 {
		c.MaxCards = 1000
	}
	return c
}

// BatchExtractionUseCase runs persisted extraction jobs. Cancellation stops
// before the next card's call, never mid-call. A terminal RateLimitExceeded
// pauses the job so the caller can re-queue it later.
type BatchExtractionUseCase struct {
	jobs      ports.ExtractionJobStore
	cards     ports.CardRepository
	extractor ports.TagExtractor
	queue     ports.JobQueue
	limiter   *rate.Limiter
	cfg       BatchConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewBatchExtractionUseCase(
	jobs ports.ExtractionJobStore,
	cards ports.CardRepository,
	extractor ports.TagExtractor,
	queue ports.JobQueue,
	cfg BatchConfig,
	logger *slog.Logger,
) *BatchExtractionUseCase {
	cfg = cfg.normalize()
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchExtractionUseCase{
		jobs:      jobs,
		cards:     cards,
		extractor: extractor,
		queue:     queue,
		limiter:   rate.NewLimiter(rate.Limit(float64(cfg.CallsPerMinute)/60.0), 1),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateJob persists a pending job and hands it to the worker queue.
func (uc *BatchExtractionUseCase) CreateJob(
	ctx context.Context,
	model, promptVersion string,
	confidenceThreshold float64,
) (*domain.ExtractionJob, error) {
	now := uc.now().UTC()
	job := &domain.ExtractionJob{
		ID:                  uuid.NewString(),
		Model:               model,
		PromptVersion:       promptVersion,
		ConfidenceThreshold: confidenceThreshold,
		Status:              domain.JobStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create extraction job: %w", err)
	}
	if err := uc.queue.PublishJob(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish extraction job: %w", err)
	}
	return job, nil
}

func (uc *BatchExtractionUseCase) RunJob(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	ids, err := uc.cards.ListIDsForExtraction(ctx, uc.cfg.MaxCards)
	if err != nil {
		return fmt.Errorf("list cards for extraction: %w", err)
	}
	if err := uc.jobs.UpdateTotal(ctx, job.ID, len(ids)); err != nil {
		return fmt.Errorf("record job total: %w", err)
	}
	if err := uc.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusRunning); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	processed, failed, runErr := uc.processCards(ctx, job.ID, ids)

	if updateErr := uc.jobs.UpdateProgress(ctx, job.ID, processed, failed); updateErr != nil {
		uc.logger.Error("job_progress_update_failed", "job_id", job.ID, "error", updateErr)
	}

	status := domain.JobStatusCompleted
	switch {
	case domain.IsKind(runErr, domain.ErrRateLimitExceeded):
		status = domain.JobStatusRateLimited
	case runErr != nil:
		status = domain.JobStatusFailed
	}
	if err := uc.jobs.UpdateStatus(ctx, job.ID, status); err != nil {
		return fmt.Errorf("mark job %s: %w", status, err)
	}
	return runErr
}

// processCards walks the card list. With one worker it is strictly
// sequential; with more, every call still waits on the shared limiter. A
// terminal rate-limit failure cancels the remaining cards; content failures
// are counted and skipped.
func (uc *BatchExtractionUseCase) processCards(ctx context.Context, jobID string, ids []string) (int, int, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan string)
	var (
		mu        sync.Mutex
		processed int
		failed    int
		terminal  error
	)

	var wg sync.WaitGroup
	for range uc.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				if runCtx.Err() != nil {
					return
				}
				if err := uc.limiter.Wait(runCtx); err != nil {
					return
				}

				_, err := uc.extractor.ExtractCard(runCtx, id)

				mu.Lock()
				switch {
				case err == nil:
					processed++
				case domain.IsKind(err, domain.ErrRateLimitExceeded):
					if terminal == nil {
						terminal = err
					}
					mu.Unlock()
					uc.logger.Warn("job_rate_limit_exceeded", "job_id", jobID, "card_id", id)
					cancel()
					return
				default:
					failed++
					uc.logger.Warn("job_card_failed", "job_id", jobID, "card_id", id, "error", err)
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		select {
		case work <- id:
		case <-runCtx.Done():
		}
		if runCtx.Err() != nil {
			break
		}
	}
	close(work)
	wg.Wait()

	if terminal != nil {
		return processed, failed, terminal
	}
	if err := ctx.Err(); err != nil {
		return processed, failed, err
	}
	return processed, failed, nil
}

var _ ports.BatchExtractor = (*BatchExtractionUseCase)(nil)
