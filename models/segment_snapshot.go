package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrFrozenSnapshot is returned by model hooks when an update or delete is
// attempted against snapshot data. Snapshots are immutable once written so
// that any decision referencing one can be replayed byte for byte.
var ErrFrozenSnapshot = errors.New("segment snapshots are immutable")

// SegmentDefinition is the membership query frozen alongside a snapshot.
// Evaluation matches profiles whose denormalized membership or labels contain
// the given values; empty fields are ignored.
type SegmentDefinition struct {
	SegmentName string   `json:"segment_name"`
	Version     string   `json:"version,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	JourneyID   *string  `json:"journey_id,omitempty"`
}

// Value implements the driver.Valuer interface for SegmentDefinition
func (d SegmentDefinition) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface for SegmentDefinition
func (d *SegmentDefinition) Scan(value any) error {
	if value == nil {
		*d = SegmentDefinition{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SegmentDefinition", value)
	}

	return json.Unmarshal(bytes, d)
}

// SegmentSnapshot is the immutable header of a point-in-time membership
// freeze. Identified by a caller-supplied snapshot ID, unique per tenant:
// two tenants may freeze under the same ID without ever observing each other.
// The member set is persisted atomically with the header.
type SegmentSnapshot struct {
	TenantID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"tenant_id"`
	SnapshotID string    `gorm:"size:120;primaryKey" json:"snapshot_id"`

	SegmentName string            `gorm:"size:255;not null;index:idx_segment_snapshots_segment_name" json:"segment_name"`
	Definition  SegmentDefinition `gorm:"type:jsonb;not null" json:"definition"`
	MemberCount int64             `gorm:"not null" json:"member_count"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_segment_snapshots_created_at" json:"created_at"`
}

func (SegmentSnapshot) TableName() string {
	return "segment_snapshots"
}

// BeforeUpdate rejects any mutation of a frozen snapshot
func (s *SegmentSnapshot) BeforeUpdate(tx *gorm.DB) error {
	return ErrFrozenSnapshot
}

// BeforeDelete rejects any deletion of a frozen snapshot
func (s *SegmentSnapshot) BeforeDelete(tx *gorm.DB) error {
	return ErrFrozenSnapshot
}

// SnapshotMember is one (tenant, snapshot, profile) triple, unique per
// triple, bulk-inserted at snapshot-creation time.
type SnapshotMember struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;type:bigserial" json:"id"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_snapshot_members_triple,priority:1" json:"tenant_id"`
	SnapshotID string    `gorm:"size:120;not null;uniqueIndex:uk_snapshot_members_triple,priority:2" json:"snapshot_id"`
	ProfileID  int64     `gorm:"not null;uniqueIndex:uk_snapshot_members_triple,priority:3" json:"profile_id"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (SnapshotMember) TableName() string {
	return "snapshot_members"
}

// BeforeUpdate rejects any mutation of frozen membership
func (m *SnapshotMember) BeforeUpdate(tx *gorm.DB) error {
	return ErrFrozenSnapshot
}

// BeforeDelete rejects removal of a member from a frozen snapshot
func (m *SnapshotMember) BeforeDelete(tx *gorm.DB) error {
	return ErrFrozenSnapshot
}

// SegmentSnapshotFilter represents filter criteria for snapshot queries
type SegmentSnapshotFilter struct {
	SnapshotID    *string
	SegmentName   *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
