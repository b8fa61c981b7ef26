package businessflow

import (
	"context"
	"time"

	"github.com/kavehjm/Simorgh/app/services"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
)

// EnrichmentResult reports what a single ProcessNext call did with the queue
type EnrichmentResult int

const (
	// EnrichmentIdle means no job was claimed
	EnrichmentIdle EnrichmentResult = iota
	// EnrichmentCompleted means a job was processed and its vector stored
	EnrichmentCompleted
	// EnrichmentFailed means a job was claimed but its attempt failed
	EnrichmentFailed
)

// EnrichmentFlow drains the embedding work queue. Workers claim one job at a
// time with an exclusive lease; a crashed worker's lease goes stale and the
// job becomes claimable again, so no committed content change is ever lost.
type EnrichmentFlow interface {
	ProcessNext(ctx context.Context, workerID string) (EnrichmentResult, error)
}

// EnrichmentFlowImpl implements the enrichment business flow
type EnrichmentFlowImpl struct {
	jobRepo          repository.EmbeddingJobRepository
	eventRepo        repository.MarketingEventRepository
	embeddingService services.EmbeddingService
	staleness        time.Duration
}

// NewEnrichmentFlow creates a new enrichment flow instance
func NewEnrichmentFlow(
	jobRepo repository.EmbeddingJobRepository,
	eventRepo repository.MarketingEventRepository,
	embeddingService services.EmbeddingService,
	staleness time.Duration,
) EnrichmentFlow {
	return &EnrichmentFlowImpl{
		jobRepo:          jobRepo,
		eventRepo:        eventRepo,
		embeddingService: embeddingService,
		staleness:        staleness,
	}
}

// ProcessNext claims and processes one job. It returns EnrichmentIdle when
// the queue has nothing claimable, which tells the worker loop to idle until
// the next tick. Claiming spans tenants; processing runs under the claimed
// job's tenant binding.
func (f *EnrichmentFlowImpl) ProcessNext(ctx context.Context, workerID string) (EnrichmentResult, error) {
	job, err := f.jobRepo.ClaimNext(ctx, workerID, f.staleness)
	if err != nil {
		return EnrichmentIdle, NewBusinessError("JOB_CLAIM_FAILED", "Failed to claim embedding job", err)
	}
	if job == nil {
		return EnrichmentIdle, nil
	}

	tenantCtx := repository.WithTenant(ctx, job.TenantID)

	if err := f.processJob(tenantCtx, job); err != nil {
		if failErr := f.jobRepo.Fail(tenantCtx, job.ID, err.Error()); failErr != nil {
			return EnrichmentFailed, NewBusinessError("JOB_FAIL_FAILED", "Failed to record job failure", failErr)
		}
		f.markEventFailedIfTerminal(tenantCtx, job.ID, job.EventID)
		return EnrichmentFailed, nil
	}

	if err := f.jobRepo.Complete(tenantCtx, job.ID); err != nil {
		return EnrichmentFailed, NewBusinessError("JOB_COMPLETE_FAILED", "Failed to complete embedding job", err)
	}

	return EnrichmentCompleted, nil
}

// processJob vectorizes the event content and writes the result back
func (f *EnrichmentFlowImpl) processJob(ctx context.Context, job *models.EmbeddingJob) error {
	event, err := f.eventRepo.ByID(ctx, job.EventID)
	if err != nil {
		return err
	}
	if event == nil {
		return ErrMarketingEventNotFound
	}

	text := event.EmbeddableText()
	if text == "" {
		return ErrNoEmbeddableContent
	}

	vector, err := f.embeddingService.Embed(ctx, text)
	if err != nil {
		return err
	}

	return f.eventRepo.UpdateEmbedding(ctx, event.ID, vector)
}

// markEventFailedIfTerminal reflects a terminally failed job onto the event's
// embedding status. Retryable failures leave the event pending; a later
// attempt may still succeed.
func (f *EnrichmentFlowImpl) markEventFailedIfTerminal(ctx context.Context, jobID uint, eventID string) {
	job, err := f.jobRepo.ByID(ctx, jobID)
	if err != nil || job == nil {
		return
	}
	if job.Status == models.EmbeddingJobStatusFailed {
		_ = f.eventRepo.SetEmbeddingStatus(ctx, eventID, models.EmbeddingStatusFailed)
	}
}
