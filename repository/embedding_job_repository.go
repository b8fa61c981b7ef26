package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/utils"
	"gorm.io/gorm"
)

// ErrJobNotFound is returned when completing or failing an unknown job
var ErrJobNotFound = errors.New("embedding job not found")

// EmbeddingJobRepositoryImpl implements the EmbeddingJobRepository interface
type EmbeddingJobRepositoryImpl struct {
	*BaseScopedRepository[models.EmbeddingJob, models.EmbeddingJobFilter]
}

// NewEmbeddingJobRepository creates a new embedding job repository
func NewEmbeddingJobRepository(db *gorm.DB) EmbeddingJobRepository {
	return &EmbeddingJobRepositoryImpl{
		BaseScopedRepository: NewBaseScopedRepository[models.EmbeddingJob, models.EmbeddingJobFilter](db),
	}
}

// ByID retrieves a job by ID under the bound tenant
func (r *EmbeddingJobRepositoryImpl) ByID(ctx context.Context, id uint) (*models.EmbeddingJob, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return nil, nil
	}
	return firstScoped[models.EmbeddingJob](db, "id = ?", id)
}

// ByFilter retrieves jobs matching the filter criteria
func (r *EmbeddingJobRepositoryImpl) ByFilter(ctx context.Context, filter models.EmbeddingJobFilter, orderBy string, limit, offset int) ([]*models.EmbeddingJob, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return []*models.EmbeddingJob{}, nil
	}
	query := applyEmbeddingJobFilter(db.Model(&models.EmbeddingJob{}), filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var jobs []*models.EmbeddingJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to find embedding jobs by filter: %w", err)
	}

	return jobs, nil
}

// Count returns the number of jobs matching the filter
func (r *EmbeddingJobRepositoryImpl) Count(ctx context.Context, filter models.EmbeddingJobFilter) (int64, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return 0, nil
	}

	var count int64
	err := applyEmbeddingJobFilter(db.Model(&models.EmbeddingJob{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count embedding jobs: %w", err)
	}

	return count, nil
}

// Enqueue inserts a pending job for a marketing event. Called by the catalog
// write path whenever embeddable content changes.
func (r *EmbeddingJobRepositoryImpl) Enqueue(ctx context.Context, tenantID uuid.UUID, eventID string) (*models.EmbeddingJob, error) {
	if _, ok := TenantFrom(ctx); !ok {
		return nil, ErrIsolationViolation
	}

	job := &models.EmbeddingJob{
		TenantID: tenantID,
		EventID:  eventID,
		Status:   models.EmbeddingJobStatusPending,
	}
	if err := r.BaseScopedRepository.Save(ctx, job); err != nil {
		return nil, err
	}

	return job, nil
}

// ClaimNext atomically selects one claimable job and marks it processing for
// the calling worker. Claimable means pending, or processing under a lock
// older than the staleness threshold (an abandoned lease from a crashed
// worker). The inner select uses FOR UPDATE SKIP LOCKED, so the operation
// never blocks on a job held by a live worker and no two workers can claim
// the same job in the same lease window: contention resolves by skipping,
// not waiting.
//
// Workers service every tenant, so this is deliberately not tenant-scoped;
// the returned job carries its tenant for the enrichment write-back.
func (r *EmbeddingJobRepositoryImpl) ClaimNext(ctx context.Context, workerID string, staleness time.Duration) (*models.EmbeddingJob, error) {
	now := utils.UTCNow()
	cutoff := now.Add(-staleness)

	var jobs []models.EmbeddingJob
	err := r.getDB(ctx).Raw(`
		UPDATE embedding_jobs
		SET status = ?, locked_at = ?, locked_by = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM embedding_jobs
			WHERE status = ?
			   OR (status = ? AND locked_at < ?)
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		models.EmbeddingJobStatusProcessing, now, workerID, now,
		models.EmbeddingJobStatusPending,
		models.EmbeddingJobStatusProcessing, cutoff,
	).Scan(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to claim embedding job: %w", err)
	}

	if len(jobs) == 0 {
		return nil, nil // Nothing claimable right now
	}

	return &jobs[0], nil
}

// Complete marks a job terminally completed and releases its lock
func (r *EmbeddingJobRepositoryImpl) Complete(ctx context.Context, jobID uint) error {
	res := r.getDB(ctx).Model(&models.EmbeddingJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":     models.EmbeddingJobStatusCompleted,
			"locked_at":  nil,
			"locked_by":  nil,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to complete embedding job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}

	return nil
}

// Fail increments the attempt counter and returns the job to pending while
// attempts remain, else marks it terminally failed. Either way the lock is
// released and the cause recorded.
func (r *EmbeddingJobRepositoryImpl) Fail(ctx context.Context, jobID uint, cause string) error {
	res := r.getDB(ctx).Exec(`
		UPDATE embedding_jobs
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = ?,
		    updated_at = ?
		WHERE id = ?`,
		models.EmbeddingJobMaxAttempts,
		models.EmbeddingJobStatusFailed,
		models.EmbeddingJobStatusPending,
		cause, utils.UTCNow(), jobID,
	)
	if res.Error != nil {
		return fmt.Errorf("failed to fail embedding job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}

	return nil
}

func applyEmbeddingJobFilter(db *gorm.DB, filter models.EmbeddingJobFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.EventID != nil {
		db = db.Where("event_id = ?", *filter.EventID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.LockedBy != nil {
		db = db.Where("locked_by = ?", *filter.LockedBy)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
