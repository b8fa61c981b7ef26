package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/utils"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// ErrDuplicateEventID is returned when a marketing event's content address
// collides with an existing row on a non-idempotent create
var ErrDuplicateEventID = errors.New("marketing event identifier already exists")

// MarketingEventRepositoryImpl implements the MarketingEventRepository interface
type MarketingEventRepositoryImpl struct {
	*BaseScopedRepository[models.MarketingEvent, models.MarketingEventFilter]
}

// NewMarketingEventRepository creates a new marketing event repository
func NewMarketingEventRepository(db *gorm.DB) MarketingEventRepository {
	return &MarketingEventRepositoryImpl{
		BaseScopedRepository: NewBaseScopedRepository[models.MarketingEvent, models.MarketingEventFilter](db),
	}
}

// Save inserts a new marketing event, mapping a primary key collision on the
// content address to ErrDuplicateEventID
func (r *MarketingEventRepositoryImpl) Save(ctx context.Context, event *models.MarketingEvent) error {
	err := r.BaseScopedRepository.Save(ctx, event)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEventID
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEventID
		}
		return err
	}
	return nil
}

// ByID retrieves a marketing event by its content address under the bound tenant
func (r *MarketingEventRepositoryImpl) ByID(ctx context.Context, id string) (*models.MarketingEvent, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return nil, nil
	}
	return firstScoped[models.MarketingEvent](db, "id = ?", id)
}

// ByFilter retrieves marketing events matching the filter criteria
func (r *MarketingEventRepositoryImpl) ByFilter(ctx context.Context, filter models.MarketingEventFilter, orderBy string, limit, offset int) ([]*models.MarketingEvent, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return []*models.MarketingEvent{}, nil
	}
	query := applyMarketingEventFilter(db.Model(&models.MarketingEvent{}), filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var events []*models.MarketingEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to find marketing events by filter: %w", err)
	}

	return events, nil
}

// Count returns the number of marketing events matching the filter
func (r *MarketingEventRepositoryImpl) Count(ctx context.Context, filter models.MarketingEventFilter) (int64, error) {
	db, ok := r.scopedDB(ctx)
	if !ok {
		return 0, nil
	}

	var count int64
	err := applyMarketingEventFilter(db.Model(&models.MarketingEvent{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count marketing events: %w", err)
	}

	return count, nil
}

// UpdateContent replaces the embeddable text of an event. The identifier is
// never recomputed: content changes do not change identity.
func (r *MarketingEventRepositoryImpl) UpdateContent(ctx context.Context, id string, subject, body *string) error {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return ErrIsolationViolation
	}

	// A field left out of the edit keeps its stored value
	updates := map[string]any{
		"embedding_status": models.EmbeddingStatusPending,
		"updated_at":       utils.UTCNow(),
	}
	if subject != nil {
		updates["subject"] = subject
	}
	if body != nil {
		updates["body"] = body
	}

	return r.getDB(ctx).Model(&models.MarketingEvent{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

// UpdateEmbedding writes the vector produced by the enrichment worker
func (r *MarketingEventRepositoryImpl) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return ErrIsolationViolation
	}

	vec := pgvector.NewVector(embedding)
	return r.getDB(ctx).Model(&models.MarketingEvent{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]any{
			"embedding":        vec,
			"embedding_status": models.EmbeddingStatusCompleted,
			"updated_at":       utils.UTCNow(),
		}).Error
}

// SetEmbeddingStatus updates only the enrichment status of an event
func (r *MarketingEventRepositoryImpl) SetEmbeddingStatus(ctx context.Context, id string, status models.EmbeddingStatus) error {
	tenantID, ok := TenantFrom(ctx)
	if !ok {
		return ErrIsolationViolation
	}

	return r.getDB(ctx).Model(&models.MarketingEvent{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]any{
			"embedding_status": status,
			"updated_at":       utils.UTCNow(),
		}).Error
}

func applyMarketingEventFilter(db *gorm.DB, filter models.MarketingEventFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.EventType != nil {
		db = db.Where("event_type = ?", *filter.EventType)
	}
	if filter.Channel != nil {
		db = db.Where("channel = ?", *filter.Channel)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.EmbeddingStatus != nil {
		db = db.Where("embedding_status = ?", *filter.EmbeddingStatus)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
