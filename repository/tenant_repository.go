package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/utils"
	"gorm.io/gorm"
)

// TenantRepositoryImpl implements the TenantRepository interface.
// The registry is deliberately unscoped: it is the root of isolation, not a
// subject of it.
type TenantRepositoryImpl struct {
	*BaseRepository[models.Tenant, models.TenantFilter]
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &TenantRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Tenant, models.TenantFilter](db),
	}
}

// ByID retrieves a tenant by ID
func (r *TenantRepositoryImpl) ByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	db := r.getDB(ctx)

	var tenant models.Tenant
	err := db.Where("id = ?", id).Last(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &tenant, nil
}

// ByName retrieves a tenant by its unique display name
func (r *TenantRepositoryImpl) ByName(ctx context.Context, name string) (*models.Tenant, error) {
	db := r.getDB(ctx)

	var tenant models.Tenant
	err := db.Where("name = ?", name).Last(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &tenant, nil
}

// ByFilter retrieves tenants matching the filter criteria
func (r *TenantRepositoryImpl) ByFilter(ctx context.Context, filter models.TenantFilter, orderBy string, limit, offset int) ([]*models.Tenant, error) {
	db := r.getDB(ctx)
	query := applyTenantFilter(db.Model(&models.Tenant{}), filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var tenants []*models.Tenant
	if err := query.Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to find tenants by filter: %w", err)
	}

	return tenants, nil
}

// Count returns the number of tenants matching the filter
func (r *TenantRepositoryImpl) Count(ctx context.Context, filter models.TenantFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := applyTenantFilter(db.Model(&models.Tenant{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tenants: %w", err)
	}

	return count, nil
}

// UpdateStatus updates only the lifecycle status of a tenant
func (r *TenantRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TenantStatus) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	updates := map[string]any{
		"status":     status,
		"updated_at": utils.UTCNow(),
	}
	if status == models.TenantStatusArchived {
		updates["archived_at"] = utils.UTCNow()
	}

	err = db.Model(&models.Tenant{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update tenant status: %w", err)
	}

	return nil
}

func applyTenantFilter(db *gorm.DB, filter models.TenantFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
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
