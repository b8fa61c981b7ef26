package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryStatus enumerates the truth states a dispatcher may append.
// A delivery that moves from pending to sent is two rows, never an edit.
type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// Valid checks if the status is valid
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusSent, DeliveryStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DeliveryStatus
func (s *DeliveryStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DeliveryStatus(v)
	case []byte:
		*s = DeliveryStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliveryStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DeliveryStatus
func (s DeliveryStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DeliveryStatus: %s", s)
	}
	return string(s), nil
}

// DeliveryAttempt records one attempted send of a marketing event to a
// profile on a channel. The dispatcher appends a pending row before the
// external call and a further row with the provider response after it; a
// failed or undeliverable attempt is always represented by a terminal row,
// never by the absence of one.
type DeliveryAttempt struct {
	ID       int64     `gorm:"primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_delivery_attempts_tenant_occurred,priority:1" json:"tenant_id"`

	ProfileID int64          `gorm:"not null;index:idx_delivery_attempts_profile_id" json:"profile_id"`
	Profile   Profile        `gorm:"foreignKey:ProfileID;references:ID" json:"-"`
	EventID   string         `gorm:"size:64;not null;index:idx_delivery_attempts_event_id" json:"event_id"`
	Event     MarketingEvent `gorm:"foreignKey:EventID;references:ID" json:"-"`

	Channel Channel        `gorm:"size:20;not null" json:"channel"`
	Status  DeliveryStatus `gorm:"size:20;not null;index:idx_delivery_attempts_status" json:"status"`

	// Supersedes links a provider-response row back to its pending row
	Supersedes *int64 `gorm:"index:idx_delivery_attempts_supersedes" json:"supersedes,omitempty"`

	ProviderResponse json.RawMessage `gorm:"type:jsonb" json:"provider_response,omitempty"`
	FailureReason    *string         `gorm:"type:text" json:"failure_reason,omitempty"`

	PartitionKey string    `gorm:"size:20;not null;index:idx_delivery_attempts_partition_key" json:"-"`
	OccurredAt   time.Time `gorm:"not null;index:idx_delivery_attempts_tenant_occurred,priority:2" json:"occurred_at"`
	CreatedAt    time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (DeliveryAttempt) TableName() string {
	return "delivery_attempts"
}

// BeforeCreate assigns a time-ordered record ID and the partition key
func (d *DeliveryAttempt) BeforeCreate(tx *gorm.DB) error {
	if d.OccurredAt.IsZero() {
		d.OccurredAt = time.Now().UTC()
	}
	if d.ID == 0 {
		d.ID = NextLedgerID()
	}
	if d.Status == "" {
		d.Status = DeliveryStatusPending
	}
	d.PartitionKey = PartitionKey(d.TenantID, d.OccurredAt)
	return nil
}

// BeforeUpdate rejects any mutation past creation
func (d *DeliveryAttempt) BeforeUpdate(tx *gorm.DB) error {
	return ErrAppendOnly
}

// BeforeDelete rejects any deletion
func (d *DeliveryAttempt) BeforeDelete(tx *gorm.DB) error {
	return ErrAppendOnly
}

// DeliveryAttemptFilter represents filter criteria for delivery reads
type DeliveryAttemptFilter struct {
	ProfileID      *int64
	EventID        *string
	Channel        *Channel
	Status         *DeliveryStatus
	OccurredAfter  *time.Time
	OccurredBefore *time.Time
}
