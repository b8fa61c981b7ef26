package repository

import (
	"context"
	"fmt"

	"github.com/kavehjm/Simorgh/models"
	"gorm.io/gorm"
)

// BehavioralEventRepositoryImpl implements the BehavioralEventRepository
// interface. The type deliberately exposes no update or delete path: the
// behavioral log only grows, and corrections are new records.
type BehavioralEventRepositoryImpl struct {
	*BaseScopedRepository[models.BehavioralEvent, models.BehavioralEventFilter]
}

// NewBehavioralEventRepository creates a new behavioral event repository
func NewBehavioralEventRepository(db *gorm.DB) BehavioralEventRepository {
	return &BehavioralEventRepositoryImpl{
		BaseScopedRepository: NewBaseScopedRepository[models.BehavioralEvent, models.BehavioralEventFilter](db),
	}
}

// Append atomically inserts one behavioral event
func (r *BehavioralEventRepositoryImpl) Append(ctx context.Context, event *models.BehavioralEvent) error {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return ErrIsolationViolation
	}
	event.TenantID = tenantID
	return r.BaseScopedRepository.Save(ctx, event)
}

// AppendBatch inserts many behavioral events in one transaction
func (r *BehavioralEventRepositoryImpl) AppendBatch(ctx context.Context, events []*models.BehavioralEvent) error {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return ErrIsolationViolation
	}
	for _, e := range events {
		e.TenantID = tenantID
	}
	return r.BaseScopedRepository.SaveBatch(ctx, events)
}

// ByFilter performs a range/filter read. Every read is keyed by the bound
// tenant, which also routes the query onto the partition-friendly composite
// index.
func (r *BehavioralEventRepositoryImpl) ByFilter(ctx context.Context, filter models.BehavioralEventFilter, orderBy string, limit, offset int) ([]*models.BehavioralEvent, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return []*models.BehavioralEvent{}, nil
	}
	query := applyBehavioralEventFilter(db.Model(&models.BehavioralEvent{}), filter)

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

	var events []*models.BehavioralEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to find behavioral events by filter: %w", err)
	}

	return events, nil
}

// Count returns the number of behavioral events matching the filter
func (r *BehavioralEventRepositoryImpl) Count(ctx context.Context, filter models.BehavioralEventFilter) (int64, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return 0, nil
	}

	var count int64
	err := applyBehavioralEventFilter(db.Model(&models.BehavioralEvent{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count behavioral events: %w", err)
	}

	return count, nil
}

func applyBehavioralEventFilter(db *gorm.DB, filter models.BehavioralEventFilter) *gorm.DB {
	if filter.ProfileID != nil {
		db = db.Where("profile_id = ?", *filter.ProfileID)
	}
	if filter.EventName != nil {
		db = db.Where("event_name = ?", *filter.EventName)
	}
	if filter.OccurredAfter != nil {
		db = db.Where("occurred_at >= ?", *filter.OccurredAfter)
	}
	if filter.OccurredBefore != nil {
		db = db.Where("occurred_at <= ?", *filter.OccurredBefore)
	}
	return db
}
