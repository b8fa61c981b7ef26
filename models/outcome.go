package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutcomeType classifies an attributed result of a delivery
type OutcomeType string

const (
	OutcomeTypeOpen        OutcomeType = "open"
	OutcomeTypeClick       OutcomeType = "click"
	OutcomeTypeConversion  OutcomeType = "conversion"
	OutcomeTypeUnsubscribe OutcomeType = "unsubscribe"
	OutcomeTypeBounce      OutcomeType = "bounce"
)

// Outcome attributes a result back to a delivery attempt. The reference chain
// outcome -> delivery -> profile is what makes a decision replayable end to
// end from a single task identifier.
type Outcome struct {
	ID       int64     `gorm:"primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_outcomes_tenant_occurred,priority:1" json:"tenant_id"`

	DeliveryAttemptID int64           `gorm:"not null;index:idx_outcomes_delivery_attempt_id" json:"delivery_attempt_id"`
	DeliveryAttempt   DeliveryAttempt `gorm:"foreignKey:DeliveryAttemptID;references:ID" json:"-"`
	ProfileID         int64           `gorm:"not null;index:idx_outcomes_profile_id" json:"profile_id"`

	OutcomeType OutcomeType     `gorm:"size:30;not null;index:idx_outcomes_outcome_type" json:"outcome_type"`
	Metadata    json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	PartitionKey string    `gorm:"size:20;not null;index:idx_outcomes_partition_key" json:"-"`
	OccurredAt   time.Time `gorm:"not null;index:idx_outcomes_tenant_occurred,priority:2" json:"occurred_at"`
	CreatedAt    time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (Outcome) TableName() string {
	return "outcomes"
}

// BeforeCreate assigns a time-ordered record ID and the partition key
func (o *Outcome) BeforeCreate(tx *gorm.DB) error {
	if o.OccurredAt.IsZero() {
		o.OccurredAt = time.Now().UTC()
	}
	if o.ID == 0 {
		o.ID = NextLedgerID()
	}
	o.PartitionKey = PartitionKey(o.TenantID, o.OccurredAt)
	return nil
}

// BeforeUpdate rejects any mutation past creation
func (o *Outcome) BeforeUpdate(tx *gorm.DB) error {
	return ErrAppendOnly
}

// BeforeDelete rejects any deletion
func (o *Outcome) BeforeDelete(tx *gorm.DB) error {
	return ErrAppendOnly
}

// OutcomeFilter represents filter criteria for outcome reads
type OutcomeFilter struct {
	DeliveryAttemptID *int64
	ProfileID         *int64
	OutcomeType       *OutcomeType
	OccurredAfter     *time.Time
	OccurredBefore    *time.Time
}
