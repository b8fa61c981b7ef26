package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// BaseRepository provides common repository functionality with transaction support
type BaseRepository[T any, F any] struct {
	DB *gorm.DB
}

// NewBaseRepository creates a new base repository instance
func NewBaseRepository[T any, F any](db *gorm.DB) *BaseRepository[T, F] {
	return &BaseRepository[T, F]{
		DB: db,
	}
}

// getDB returns the appropriate database connection (with or without transaction)
func (r *BaseRepository[T, F]) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.DB
}

// getDBForWrite returns database connection with transaction for write operations
func (r *BaseRepository[T, F]) getDBForWrite(ctx context.Context) (*gorm.DB, bool, error) {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx, false, nil // Transaction already exists, don't commit
	}

	// Start new transaction for write operation
	tx := r.DB.Begin()
	if tx.Error != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	return tx, true, nil // New transaction, should commit
}

// Save inserts a new entity
func (r *BaseRepository[T, F]) Save(ctx context.Context, entity *T) error {
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

	err = db.Create(entity).Error
	if err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}

	return nil
}

// SaveBatch inserts multiple entities in a single transaction
func (r *BaseRepository[T, F]) SaveBatch(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}

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

	err = db.CreateInBatches(entities, 100).Error // Batch size of 100
	if err != nil {
		return fmt.Errorf("failed to save batch entities: %w", err)
	}

	return nil
}

// BaseScopedRepository is a BaseRepository whose every operation is filtered
// by the tenant bound to the context. Isolation is enforced here, in the
// storage layer, never trusted to caller discipline: reads without a binding
// return empty result sets and writes fail with ErrIsolationViolation.
type BaseScopedRepository[T any, F any] struct {
	BaseRepository[T, F]
}

// NewBaseScopedRepository creates a new tenant-scoped base repository instance
func NewBaseScopedRepository[T any, F any](db *gorm.DB) *BaseScopedRepository[T, F] {
	return &BaseScopedRepository[T, F]{
		BaseRepository: BaseRepository[T, F]{DB: db},
	}
}

// scopedDB returns a connection pre-filtered by the bound tenant. The second
// return is false when no tenant is bound; readers must then return empty.
func (r *BaseScopedRepository[T, F]) scopedDB(ctx context.Context) (*gorm.DB, bool) {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return nil, false
	}
	return r.getDB(ctx).Where("tenant_id = ?", tenantID), true
}

// scopedDBForWrite is scopedDB for write paths: an unbound context is a hard
// failure, not an empty result
func (r *BaseScopedRepository[T, F]) scopedDBForWrite(ctx context.Context) (*gorm.DB, bool, error) {
	if _, ok := TenantFrom(ctx); !ok {
		return nil, false, ErrIsolationViolation
	}
	return r.getDBForWrite(ctx)
}

// Save inserts a new tenant-scoped entity; it fails closed without a binding
func (r *BaseScopedRepository[T, F]) Save(ctx context.Context, entity *T) error {
	if _, ok := TenantFrom(ctx); !ok {
		return ErrIsolationViolation
	}
	return r.BaseRepository.Save(ctx, entity)
}

// SaveBatch inserts multiple tenant-scoped entities; it fails closed without a binding
func (r *BaseScopedRepository[T, F]) SaveBatch(ctx context.Context, entities []*T) error {
	if _, ok := TenantFrom(ctx); !ok {
		return ErrIsolationViolation
	}
	return r.BaseRepository.SaveBatch(ctx, entities)
}

// firstScoped loads a single entity under the tenant scope, mapping
// not-found to a nil entity rather than an error
func firstScoped[T any](db *gorm.DB, conds ...any) (*T, error) {
	var entity T
	err := db.Last(&entity, conds...).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// WithTransaction executes a function within a database transaction
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(context.Context) error) (err error) {
	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()

	ctx = context.WithValue(ctx, TxContextKey, tx)

	if err := fn(ctx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
