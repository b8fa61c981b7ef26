package repository

import (
	"context"
	"fmt"

	"github.com/kavehjm/Simorgh/models"
	"gorm.io/gorm"
)

// OutcomeRepositoryImpl implements the OutcomeRepository interface
type OutcomeRepositoryImpl struct {
	*BaseScopedRepository[models.Outcome, models.OutcomeFilter]
}

// NewOutcomeRepository creates a new outcome repository
func NewOutcomeRepository(db *gorm.DB) OutcomeRepository {
	return &OutcomeRepositoryImpl{
		BaseScopedRepository: NewBaseScopedRepository[models.Outcome, models.OutcomeFilter](db),
	}
}

// Append atomically inserts one attributed outcome
func (r *OutcomeRepositoryImpl) Append(ctx context.Context, outcome *models.Outcome) error {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return ErrIsolationViolation
	}
	outcome.TenantID = tenantID
	return r.BaseScopedRepository.Save(ctx, outcome)
}

// ByFilter performs a range/filter read keyed by the bound tenant
func (r *OutcomeRepositoryImpl) ByFilter(ctx context.Context, filter models.OutcomeFilter, orderBy string, limit, offset int) ([]*models.Outcome, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return []*models.Outcome{}, nil
	}
	query := applyOutcomeFilter(db.Model(&models.Outcome{}), filter)

	if orderBy == "" {
		orderBy = "occurred_at ASC, id ASC"
	}
	query = query.Order(orderBy)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var outcomes []*models.Outcome
	if err := query.Find(&outcomes).Error; err != nil {
		return nil, fmt.Errorf("failed to find outcomes by filter: %w", err)
	}

	return outcomes, nil
}

// Count returns the number of outcomes matching the filter
func (r *OutcomeRepositoryImpl) Count(ctx context.Context, filter models.OutcomeFilter) (int64, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return 0, nil
	}

	var count int64
	err := applyOutcomeFilter(db.Model(&models.Outcome{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count outcomes: %w", err)
	}

	return count, nil
}

func applyOutcomeFilter(db *gorm.DB, filter models.OutcomeFilter) *gorm.DB {
	if filter.DeliveryAttemptID != nil {
		db = db.Where("delivery_attempt_id = ?", *filter.DeliveryAttemptID)
	}
	if filter.ProfileID != nil {
		db = db.Where("profile_id = ?", *filter.ProfileID)
	}
	if filter.OutcomeType != nil {
		db = db.Where("outcome_type = ?", *filter.OutcomeType)
	}
	if filter.OccurredAfter != nil {
		db = db.Where("occurred_at >= ?", *filter.OccurredAfter)
	}
	if filter.OccurredBefore != nil {
		db = db.Where("occurred_at <= ?", *filter.OccurredBefore)
	}
	return db
}
