package repository

import (
	"context"
	"fmt"

	"github.com/kavehjm/Simorgh/models"
	"gorm.io/gorm"
)

// DeliveryAttemptRepositoryImpl implements the DeliveryAttemptRepository
// interface. Append-only: a provider response is a new row superseding the
// pending one, never an in-place edit.
type DeliveryAttemptRepositoryImpl struct {
	*BaseScopedRepository[models.DeliveryAttempt, models.DeliveryAttemptFilter]
}

// NewDeliveryAttemptRepository creates a new delivery attempt repository
func NewDeliveryAttemptRepository(db *gorm.DB) DeliveryAttemptRepository {
	return &DeliveryAttemptRepositoryImpl{
		BaseScopedRepository: NewBaseScopedRepository[models.DeliveryAttempt, models.DeliveryAttemptFilter](db),
	}
}

// Append atomically inserts one delivery attempt record
func (r *DeliveryAttemptRepositoryImpl) Append(ctx context.Context, attempt *models.DeliveryAttempt) error {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return ErrIsolationViolation
	}
	attempt.TenantID = tenantID
	return r.BaseScopedRepository.Save(ctx, attempt)
}

// ByID retrieves a delivery attempt by record ID under the bound tenant
func (r *DeliveryAttemptRepositoryImpl) ByID(ctx context.Context, id int64) (*models.DeliveryAttempt, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return nil, nil
	}
	return firstScoped[models.DeliveryAttempt](db, "id = ?", id)
}

// ByFilter performs a range/filter read keyed by the bound tenant
func (r *DeliveryAttemptRepositoryImpl) ByFilter(ctx context.Context, filter models.DeliveryAttemptFilter, orderBy string, limit, offset int) ([]*models.DeliveryAttempt, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return []*models.DeliveryAttempt{}, nil
	}
	query := applyDeliveryAttemptFilter(db.Model(&models.DeliveryAttempt{}), filter)

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

	var attempts []*models.DeliveryAttempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to find delivery attempts by filter: %w", err)
	}

	return attempts, nil
}

// Count returns the number of delivery attempts matching the filter
func (r *DeliveryAttemptRepositoryImpl) Count(ctx context.Context, filter models.DeliveryAttemptFilter) (int64, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return 0, nil
	}

	var count int64
	err := applyDeliveryAttemptFilter(db.Model(&models.DeliveryAttempt{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count delivery attempts: %w", err)
	}

	return count, nil
}

func applyDeliveryAttemptFilter(db *gorm.DB, filter models.DeliveryAttemptFilter) *gorm.DB {
	if filter.ProfileID != nil {
		db = db.Where("profile_id = ?", *filter.ProfileID)
	}
	if filter.EventID != nil {
		db = db.Where("event_id = ?", *filter.EventID)
	}
	if filter.Channel != nil {
		db = db.Where("channel = ?", *filter.Channel)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.OccurredAfter != nil {
		db = db.Where("occurred_at >= ?", *filter.OccurredAfter)
	}
	if filter.OccurredBefore != nil {
		db = db.Where("occurred_at <= ?", *filter.OccurredBefore)
	}
	return db
}
