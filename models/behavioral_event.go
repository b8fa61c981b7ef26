package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAppendOnly is returned by model hooks when an update or delete is
// attempted against a ledger table. Corrections are new records, never edits.
var ErrAppendOnly = errors.New("ledger records are append-only")

// PartitionKey derives the logical partition a ledger row belongs to:
// a tenant-hash bucket crossed with the month of occurrence. Partitioning is a
// scaling mechanism only; it never leaks past the repository layer.
func PartitionKey(tenantID uuid.UUID, occurredAt time.Time) string {
	var bucket byte
	for _, b := range tenantID {
		bucket ^= b
	}
	return fmt.Sprintf("%02x-%s", bucket%16, occurredAt.UTC().Format("200601"))
}

// BehavioralEvent is one append-only fact about a profile's behavior
// (page view, click, purchase, ...). The highest-volume ledger.
type BehavioralEvent struct {
	ID       int64     `gorm:"primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_behavioral_events_tenant_occurred,priority:1" json:"tenant_id"`

	ProfileID int64   `gorm:"not null;index:idx_behavioral_events_profile_id" json:"profile_id"`
	Profile   Profile `gorm:"foreignKey:ProfileID;references:ID" json:"-"`

	EventName  string          `gorm:"size:120;not null;index:idx_behavioral_events_event_name" json:"event_name"`
	Properties json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"properties"`

	PartitionKey string    `gorm:"size:20;not null;index:idx_behavioral_events_partition_key" json:"-"`
	OccurredAt   time.Time `gorm:"not null;index:idx_behavioral_events_tenant_occurred,priority:2" json:"occurred_at"`
	CreatedAt    time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (BehavioralEvent) TableName() string {
	return "behavioral_events"
}

// BeforeCreate assigns a time-ordered record ID and the partition key
func (e *BehavioralEvent) BeforeCreate(tx *gorm.DB) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if e.ID == 0 {
		e.ID = NextLedgerID()
	}
	e.PartitionKey = PartitionKey(e.TenantID, e.OccurredAt)
	return nil
}

// BeforeUpdate rejects any mutation past creation
func (e *BehavioralEvent) BeforeUpdate(tx *gorm.DB) error {
	return ErrAppendOnly
}

// BeforeDelete rejects any deletion
func (e *BehavioralEvent) BeforeDelete(tx *gorm.DB) error {
	return ErrAppendOnly
}

// BehavioralEventFilter represents filter criteria for behavioral event reads
type BehavioralEventFilter struct {
	ProfileID      *int64
	EventName      *string
	OccurredAfter  *time.Time
	OccurredBefore *time.Time
}
