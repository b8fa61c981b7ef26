package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DecisionStatus represents the lifecycle state of an agent decision
type DecisionStatus string

const (
	DecisionStatusPending   DecisionStatus = "pending"
	DecisionStatusCompleted DecisionStatus = "completed"
	DecisionStatusFailed    DecisionStatus = "failed"
)

// String returns the string representation of the status
func (s DecisionStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DecisionStatus) Valid() bool {
	switch s {
	case DecisionStatusPending, DecisionStatusCompleted, DecisionStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DecisionStatus
func (s *DecisionStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DecisionStatus(v)
	case []byte:
		*s = DecisionStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DecisionStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DecisionStatus
func (s DecisionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DecisionStatus: %s", s)
	}
	return string(s), nil
}

// DecisionAttemptCeiling bounds retries of a retryable-failed decision
const DecisionAttemptCeiling = 3

// DecisionReasoning is the opaque trace the agent attaches to its choice
type DecisionReasoning struct {
	Summary string          `json:"summary"`
	Trace   json.RawMessage `json:"trace,omitempty"`
}

// Value implements the driver.Valuer interface for DecisionReasoning
func (r DecisionReasoning) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface for DecisionReasoning
func (r *DecisionReasoning) Scan(value any) error {
	if value == nil {
		*r = DecisionReasoning{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into DecisionReasoning", value)
	}

	return json.Unmarshal(bytes, r)
}

// DecisionRecord stores one agent decision, linking the frozen audience
// (snapshot), the chosen action (marketing event), and the reasoning trace.
// Immutable once terminal except for the bounded retry counter.
type DecisionRecord struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_decision_records_tenant_task,priority:1" json:"tenant_id"`
	TaskID   string    `gorm:"size:120;not null;uniqueIndex:uk_decision_records_tenant_task,priority:2" json:"task_id"`

	SnapshotID string          `gorm:"size:120;not null;index:idx_decision_records_snapshot_id" json:"snapshot_id"`
	Snapshot   SegmentSnapshot `gorm:"belongsTo:Snapshot;foreignKey:TenantID,SnapshotID;references:TenantID,SnapshotID" json:"-"`
	EventID    string          `gorm:"size:64;not null;index:idx_decision_records_event_id" json:"event_id"`
	Event      MarketingEvent  `gorm:"foreignKey:EventID;references:ID" json:"-"`

	Status    DecisionStatus    `gorm:"size:20;not null;default:'pending';index:idx_decision_records_status" json:"status"`
	Reasoning DecisionReasoning `gorm:"type:jsonb;not null" json:"reasoning"`

	Outcome      *string `gorm:"type:text" json:"outcome,omitempty"`
	ErrorMessage *string `gorm:"type:text" json:"error_message,omitempty"`
	Attempts     int     `gorm:"not null;default:0" json:"attempts"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_decision_records_created_at" json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
}

func (DecisionRecord) TableName() string {
	return "decision_records"
}

// BeforeCreate is called before creating a new record
func (d *DecisionRecord) BeforeCreate(tx *gorm.DB) error {
	if d.Status == "" {
		d.Status = DecisionStatusPending
	}
	return nil
}

// IsTerminal reports whether the record reached a final state
func (d *DecisionRecord) IsTerminal() bool {
	return d.Status == DecisionStatusCompleted || d.Status == DecisionStatusFailed
}

// CanTransitionTo checks if the record can transition to the given status.
// No transition is ever reversed.
func (d *DecisionRecord) CanTransitionTo(newStatus DecisionStatus) bool {
	if d.Status != DecisionStatusPending {
		return false
	}
	return newStatus == DecisionStatusCompleted || newStatus == DecisionStatusFailed
}

// CanRetry reports whether a retryable failure may return to pending
func (d *DecisionRecord) CanRetry() bool {
	return d.Attempts < DecisionAttemptCeiling
}

// DecisionRecordFilter represents filter criteria for decision record queries
type DecisionRecordFilter struct {
	ID            *uint
	TaskID        *string
	SnapshotID    *string
	EventID       *string
	Status        *DecisionStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
