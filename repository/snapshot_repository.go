package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/kavehjm/Simorgh/models"
	"gorm.io/gorm"
)

// SnapshotRepositoryImpl implements the SnapshotRepository interface.
// No delete or member-removal operation exists on this type; the model hooks
// reject mutation as a second line of defense.
type SnapshotRepositoryImpl struct {
	*BaseScopedRepository[models.SegmentSnapshot, models.SegmentSnapshotFilter]
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &SnapshotRepositoryImpl{
		BaseScopedRepository: NewBaseScopedRepository[models.SegmentSnapshot, models.SegmentSnapshotFilter](db),
	}
}

// CreateWithMembers persists the snapshot header and every member row in one
// all-or-nothing transaction. A reader never observes a header without its
// full member set. Creating an already existing snapshot ID is an idempotent
// no-op: the original frozen set always wins.
func (r *SnapshotRepositoryImpl) CreateWithMembers(ctx context.Context, snapshot *models.SegmentSnapshot, profileIDs []int64) error {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return ErrIsolationViolation
	}
	snapshot.TenantID = tenantID
	snapshot.MemberCount = int64(len(profileIDs))

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

	// Existing snapshot: leave header and membership untouched
	var existing models.SegmentSnapshot
	err = db.Where("tenant_id = ? AND snapshot_id = ?", tenantID, snapshot.SnapshotID).
		Last(&existing).Error
	if err == nil {
		*snapshot = existing
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for existing snapshot: %w", err)
	}

	if err = db.Create(snapshot).Error; err != nil {
		return fmt.Errorf("failed to create snapshot header: %w", err)
	}

	if len(profileIDs) > 0 {
		members := make([]*models.SnapshotMember, 0, len(profileIDs))
		for _, pid := range profileIDs {
			members = append(members, &models.SnapshotMember{
				SnapshotID: snapshot.SnapshotID,
				TenantID:   tenantID,
				ProfileID:  pid,
			})
		}
		if err = db.CreateInBatches(members, 500).Error; err != nil {
			return fmt.Errorf("failed to create snapshot members: %w", err)
		}
	}

	return nil
}

// ByID retrieves a snapshot header under the bound tenant
func (r *SnapshotRepositoryImpl) ByID(ctx context.Context, snapshotID string) (*models.SegmentSnapshot, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return nil, nil
	}
	return firstScoped[models.SegmentSnapshot](db, "snapshot_id = ?", snapshotID)
}

// Members returns the frozen set of profile IDs for a snapshot. The result
// is identical for the lifetime of the system regardless of later profile or
// segment drift.
func (r *SnapshotRepositoryImpl) Members(ctx context.Context, snapshotID string) ([]int64, error) {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return []int64{}, nil
	}

	var profileIDs []int64
	err := r.getDB(ctx).Model(&models.SnapshotMember{}).
		Where("tenant_id = ? AND snapshot_id = ?", tenantID, snapshotID).
		Order("profile_id ASC").
		Pluck("profile_id", &profileIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot members: %w", err)
	}

	return profileIDs, nil
}

// ByFilter retrieves snapshot headers matching the filter criteria
func (r *SnapshotRepositoryImpl) ByFilter(ctx context.Context, filter models.SegmentSnapshotFilter, orderBy string, limit, offset int) ([]*models.SegmentSnapshot, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return []*models.SegmentSnapshot{}, nil
	}
	query := applySnapshotFilter(db.Model(&models.SegmentSnapshot{}), filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var snapshots []*models.SegmentSnapshot
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("failed to find snapshots by filter: %w", err)
	}

	return snapshots, nil
}

func applySnapshotFilter(db *gorm.DB, filter models.SegmentSnapshotFilter) *gorm.DB {
	if filter.SnapshotID != nil {
		db = db.Where("snapshot_id = ?", *filter.SnapshotID)
	}
	if filter.SegmentName != nil {
		db = db.Where("segment_name = ?", *filter.SegmentName)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
