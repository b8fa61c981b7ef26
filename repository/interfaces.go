// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kavehjm/Simorgh/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// tenantContextKey carries the ambient tenant identifier for the duration of
// a session. It is per-context, never process-wide.
const tenantContextKey contextKey = "tenant"

// ErrIsolationViolation is returned when a tenant-scoped write is attempted
// without a bound tenant context. Scoped reads fail closed by returning empty
// result sets instead.
var ErrIsolationViolation = errors.New("no tenant bound to context")

// WithTenant binds a tenant identifier to the context for the duration of a
// session. Callers must bind before issuing any tenant-scoped operation; the
// binding dies with the context.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantContextKey, tenantID)
}

// TenantFrom extracts the bound tenant identifier, if any
func TenantFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

type Repository[T any, F any] interface {
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// TenantRepository defines operations for the tenant registry. The registry
// is the bootstrap exception: it is not itself tenant-scoped.
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	ByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ByName(ctx context.Context, name string) (*models.Tenant, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TenantStatus) error
}

// ProfileRepository defines operations for canonical customer records
type ProfileRepository interface {
	Repository[models.Profile, models.ProfileFilter]
	ByID(ctx context.Context, id int64) (*models.Profile, error)
	ByExternalKey(ctx context.Context, externalKey string) (*models.Profile, error)
	BySegment(ctx context.Context, segment string) ([]*models.Profile, error)
	Replace(ctx context.Context, profile *models.Profile) error
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// MarketingEventRepository defines operations for definitional entities
type MarketingEventRepository interface {
	Repository[models.MarketingEvent, models.MarketingEventFilter]
	ByID(ctx context.Context, id string) (*models.MarketingEvent, error)
	UpdateContent(ctx context.Context, id string, subject, body *string) error
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	SetEmbeddingStatus(ctx context.Context, id string, status models.EmbeddingStatus) error
}

// BehavioralEventRepository exposes append and range reads only
type BehavioralEventRepository interface {
	Append(ctx context.Context, event *models.BehavioralEvent) error
	AppendBatch(ctx context.Context, events []*models.BehavioralEvent) error
	ByFilter(ctx context.Context, filter models.BehavioralEventFilter, orderBy string, limit, offset int) ([]*models.BehavioralEvent, error)
	Count(ctx context.Context, filter models.BehavioralEventFilter) (int64, error)
}

// DeliveryAttemptRepository exposes append and range reads only
type DeliveryAttemptRepository interface {
	Append(ctx context.Context, attempt *models.DeliveryAttempt) error
	ByID(ctx context.Context, id int64) (*models.DeliveryAttempt, error)
	ByFilter(ctx context.Context, filter models.DeliveryAttemptFilter, orderBy string, limit, offset int) ([]*models.DeliveryAttempt, error)
	Count(ctx context.Context, filter models.DeliveryAttemptFilter) (int64, error)
}

// OutcomeRepository exposes append and range reads only
type OutcomeRepository interface {
	Append(ctx context.Context, outcome *models.Outcome) error
	ByFilter(ctx context.Context, filter models.OutcomeFilter, orderBy string, limit, offset int) ([]*models.Outcome, error)
	Count(ctx context.Context, filter models.OutcomeFilter) (int64, error)
}

// SnapshotRepository persists immutable membership freezes
type SnapshotRepository interface {
	CreateWithMembers(ctx context.Context, snapshot *models.SegmentSnapshot, profileIDs []int64) error
	ByID(ctx context.Context, snapshotID string) (*models.SegmentSnapshot, error)
	Members(ctx context.Context, snapshotID string) ([]int64, error)
	ByFilter(ctx context.Context, filter models.SegmentSnapshotFilter, orderBy string, limit, offset int) ([]*models.SegmentSnapshot, error)
}

// DecisionRecordRepository stores agent decisions and their transitions
type DecisionRecordRepository interface {
	Repository[models.DecisionRecord, models.DecisionRecordFilter]
	ByTaskID(ctx context.Context, taskID string) (*models.DecisionRecord, error)
	Transition(ctx context.Context, taskID string, apply func(*models.DecisionRecord) error) (*models.DecisionRecord, error)
}

// EmbeddingJobRepository implements the locking work-queue protocol
type EmbeddingJobRepository interface {
	Repository[models.EmbeddingJob, models.EmbeddingJobFilter]
	ByID(ctx context.Context, id uint) (*models.EmbeddingJob, error)
	Enqueue(ctx context.Context, tenantID uuid.UUID, eventID string) (*models.EmbeddingJob, error)
	ClaimNext(ctx context.Context, workerID string, staleness time.Duration) (*models.EmbeddingJob, error)
	Complete(ctx context.Context, jobID uint) error
	Fail(ctx context.Context, jobID uint, cause string) error
}
