package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/kavehjm/Simorgh/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDecisionNotFound is returned when a transition references an unknown task
var ErrDecisionNotFound = errors.New("decision record not found")

// DecisionRecordRepositoryImpl implements the DecisionRecordRepository interface
type DecisionRecordRepositoryImpl struct {
	*BaseScopedRepository[models.DecisionRecord, models.DecisionRecordFilter]
}

// NewDecisionRecordRepository creates a new decision record repository
func NewDecisionRecordRepository(db *gorm.DB) DecisionRecordRepository {
	return &DecisionRecordRepositoryImpl{
		BaseScopedRepository: NewBaseScopedRepository[models.DecisionRecord, models.DecisionRecordFilter](db),
	}
}

// ByTaskID retrieves a decision record by its task identifier
func (r *DecisionRecordRepositoryImpl) ByTaskID(ctx context.Context, taskID string) (*models.DecisionRecord, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return nil, nil
	}
	return firstScoped[models.DecisionRecord](db, "task_id = ?", taskID)
}

// ByFilter retrieves decision records matching the filter criteria
func (r *DecisionRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.DecisionRecordFilter, orderBy string, limit, offset int) ([]*models.DecisionRecord, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return []*models.DecisionRecord{}, nil
	}
	query := applyDecisionRecordFilter(db.Model(&models.DecisionRecord{}), filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var records []*models.DecisionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to find decision records by filter: %w", err)
	}

	return records, nil
}

// Count returns the number of decision records matching the filter
func (r *DecisionRecordRepositoryImpl) Count(ctx context.Context, filter models.DecisionRecordFilter) (int64, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return 0, nil
	}

	var count int64
	err := applyDecisionRecordFilter(db.Model(&models.DecisionRecord{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count decision records: %w", err)
	}

	return count, nil
}

// Transition applies a state change to a decision record under a row lock so
// that transitions for the same task are linearizable: no two transitions for
// one task ever commit out of order.
func (r *DecisionRecordRepositoryImpl) Transition(ctx context.Context, taskID string, apply func(*models.DecisionRecord) error) (*models.DecisionRecord, error) {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return nil, ErrIsolationViolation
	}

	var record models.DecisionRecord
	err := WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		tx := txCtx.Value(TxContextKey).(*gorm.DB)

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND task_id = ?", tenantID, taskID).
			Last(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDecisionNotFound
			}
			return err
		}

		if err := apply(&record); err != nil {
			return err
		}

		return tx.Save(&record).Error
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func applyDecisionRecordFilter(db *gorm.DB, filter models.DecisionRecordFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TaskID != nil {
		db = db.Where("task_id = ?", *filter.TaskID)
	}
	if filter.SnapshotID != nil {
		db = db.Where("snapshot_id = ?", *filter.SnapshotID)
	}
	if filter.EventID != nil {
		db = db.Where("event_id = ?", *filter.EventID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
