package repository

import (
	"context"
	"fmt"

	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/utils"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// ProfileRepositoryImpl implements the ProfileRepository interface
type ProfileRepositoryImpl struct {
	*BaseScopedRepository[models.Profile, models.ProfileFilter]
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &ProfileRepositoryImpl{
		BaseScopedRepository: NewBaseScopedRepository[models.Profile, models.ProfileFilter](db),
	}
}

// ByID retrieves a profile by ID under the bound tenant
func (r *ProfileRepositoryImpl) ByID(ctx context.Context, id int64) (*models.Profile, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return nil, nil
	}
	return firstScoped[models.Profile](db, "id = ?", id)
}

// ByExternalKey retrieves a profile by its tenant-unique external key
func (r *ProfileRepositoryImpl) ByExternalKey(ctx context.Context, externalKey string) (*models.Profile, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return nil, nil
	}
	return firstScoped[models.Profile](db, "external_key = ?", externalKey)
}

// BySegment retrieves all profiles currently in the named segment
func (r *ProfileRepositoryImpl) BySegment(ctx context.Context, segment string) ([]*models.Profile, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return []*models.Profile{}, nil
	}

	var profiles []*models.Profile
	err := db.Where("? = ANY(segments)", segment).Order("id ASC").Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find profiles by segment: %w", err)
	}

	return profiles, nil
}

// ByFilter retrieves profiles matching the filter criteria
func (r *ProfileRepositoryImpl) ByFilter(ctx context.Context, filter models.ProfileFilter, orderBy string, limit, offset int) ([]*models.Profile, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return []*models.Profile{}, nil
	}
	query := applyProfileFilter(db.Model(&models.Profile{}), filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var profiles []*models.Profile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to find profiles by filter: %w", err)
	}

	return profiles, nil
}

// Count returns the number of profiles matching the filter
func (r *ProfileRepositoryImpl) Count(ctx context.Context, filter models.ProfileFilter) (int64, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return 0, nil
	}

	var count int64
	err := applyProfileFilter(db.Model(&models.Profile{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	return count, nil
}

// Replace performs a full-state replacement of a profile's computed fields.
// There is no diffing or merging; concurrent writers to the same profile are
// last-writer-wins by commit order.
func (r *ProfileRepositoryImpl) Replace(ctx context.Context, profile *models.Profile) error {
	db, shouldCommit, err := r.scopedDBForWrite(ctx)
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

	err = db.Model(&models.Profile{}).
		Where("tenant_id = ? AND id = ?", profile.TenantID, profile.ID).
		Updates(map[string]any{
			"primary_email":    profile.PrimaryEmail,
			"primary_phone":    profile.PrimaryPhone,
			"secondary_emails": profile.SecondaryEmails,
			"secondary_phones": profile.SecondaryPhones,
			"first_name":       profile.FirstName,
			"last_name":        profile.LastName,
			"segments":         profile.Segments,
			"journey_maps":     profile.JourneyMaps,
			"event_statistics": profile.EventStatistics,
			"data_labels":      profile.DataLabels,
			"consents":         profile.Consents,
			"updated_at":       utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to replace profile: %w", err)
	}

	return nil
}

// UpdateEmbedding writes the enrichment vector produced by a worker
func (r *ProfileRepositoryImpl) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return ErrIsolationViolation
	}

	vec := pgvector.NewVector(embedding)
	return r.getDB(ctx).Model(&models.Profile{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]any{
			"embedding":  vec,
			"updated_at": utils.UTCNow(),
		}).Error
}

func applyProfileFilter(db *gorm.DB, filter models.ProfileFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ExternalKey != nil {
		db = db.Where("external_key = ?", *filter.ExternalKey)
	}
	if filter.PrimaryEmail != nil {
		db = db.Where("primary_email = ?", *filter.PrimaryEmail)
	}
	if filter.PrimaryPhone != nil {
		db = db.Where("primary_phone = ?", *filter.PrimaryPhone)
	}
	if filter.SegmentContains != nil {
		db = db.Where("? = ANY(segments)", *filter.SegmentContains)
	}
	if filter.JourneyContains != nil {
		db = db.Where("? = ANY(journey_maps)", *filter.JourneyContains)
	}
	if filter.LabelContains != nil {
		db = db.Where("? = ANY(data_labels)", *filter.LabelContains)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
