package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmbeddingJobStatus represents the status of an enrichment job
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// Valid checks if the status is valid
func (s EmbeddingJobStatus) Valid() bool {
	switch s {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing,
		EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for EmbeddingJobStatus
func (s *EmbeddingJobStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = EmbeddingJobStatus(v)
	case []byte:
		*s = EmbeddingJobStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EmbeddingJobStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for EmbeddingJobStatus
func (s EmbeddingJobStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid EmbeddingJobStatus: %s", s)
	}
	return string(s), nil
}

// EmbeddingJobMaxAttempts bounds retries before a job fails terminally
const EmbeddingJobMaxAttempts = 3

// EmbeddingJob is a durable enrichment job: compute the embedding for a
// marketing event's text. Enqueued by the catalog write path whenever
// embeddable content changes; consumed by independent workers under a
// skip-on-conflict locking protocol. Delivery to workers is at-least-once,
// so the enrichment itself must be idempotent.
type EmbeddingJob struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_embedding_jobs_tenant_id" json:"tenant_id"`

	EventID string         `gorm:"size:64;not null;index:idx_embedding_jobs_event_id" json:"event_id"`
	Event   MarketingEvent `gorm:"foreignKey:EventID;references:ID" json:"-"`

	Status   EmbeddingJobStatus `gorm:"size:20;not null;default:'pending';index:idx_embedding_jobs_status" json:"status"`
	Attempts int                `gorm:"not null;default:0" json:"attempts"`

	// Lease: a processing job whose LockedAt is older than the staleness
	// threshold is abandoned and claimable by another worker
	LockedAt *time.Time `gorm:"index:idx_embedding_jobs_locked_at" json:"locked_at,omitempty"`
	LockedBy *string    `gorm:"size:120" json:"locked_by,omitempty"`

	LastError *string `gorm:"type:text" json:"last_error,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_embedding_jobs_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (EmbeddingJob) TableName() string {
	return "embedding_jobs"
}

// BeforeCreate is called before creating a new record
func (j *EmbeddingJob) BeforeCreate(tx *gorm.DB) error {
	if j.Status == "" {
		j.Status = EmbeddingJobStatusPending
	}
	return nil
}

// IsTerminal reports whether the job reached a final state
func (j *EmbeddingJob) IsTerminal() bool {
	return j.Status == EmbeddingJobStatusCompleted || j.Status == EmbeddingJobStatusFailed
}

// LockIsStale reports whether a processing job's lease has expired
func (j *EmbeddingJob) LockIsStale(threshold time.Duration, now time.Time) bool {
	if j.Status != EmbeddingJobStatusProcessing || j.LockedAt == nil {
		return false
	}
	return now.Sub(*j.LockedAt) > threshold
}

// EmbeddingJobFilter represents filter criteria for embedding job queries
type EmbeddingJobFilter struct {
	ID            *uint
	EventID       *string
	Status        *EmbeddingJobStatus
	LockedBy      *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
