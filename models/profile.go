package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Channel identifies a delivery channel for activation
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Valid checks if the channel is valid
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	default:
		return false
	}
}

// ConsentMap holds per-channel opt-in state for a profile.
// The core exposes this as an allow/deny read; enforcement before an external
// send is the dispatcher's contractual obligation.
type ConsentMap map[Channel]bool

// Value implements the driver.Valuer interface for ConsentMap
func (m ConsentMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(ConsentMap{})
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for ConsentMap
func (m *ConsentMap) Scan(value any) error {
	if value == nil {
		*m = ConsentMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ConsentMap", value)
	}

	return json.Unmarshal(bytes, m)
}

// Profile is the canonical customer record, tenant-scoped and identified by a
// tenant-unique external key. Computed fields are re-evaluated in place: the
// historical truth of why a decision was made lives in snapshots and the
// ledger, not in profile mutation history.
type Profile struct {
	ID       int64     `gorm:"primaryKey;autoIncrement;type:bigserial" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_profiles_tenant_id;uniqueIndex:uk_profiles_tenant_external_key" json:"tenant_id"`

	// External identity (from the upstream CDP / source system)
	ExternalKey string `gorm:"size:255;not null;uniqueIndex:uk_profiles_tenant_external_key" json:"external_key"`

	// Contact points
	PrimaryEmail    *string        `gorm:"size:255;index:idx_profiles_primary_email" json:"primary_email,omitempty"`
	PrimaryPhone    *string        `gorm:"size:20;index:idx_profiles_primary_phone" json:"primary_phone,omitempty"`
	SecondaryEmails pq.StringArray `gorm:"type:text[]" json:"secondary_emails,omitempty"`
	SecondaryPhones pq.StringArray `gorm:"type:text[]" json:"secondary_phones,omitempty"`

	FirstName *string `gorm:"size:255" json:"first_name,omitempty"`
	LastName  *string `gorm:"size:255" json:"last_name,omitempty"`

	// Denormalized membership for read speed; frozen truth lives in snapshots
	Segments    pq.StringArray `gorm:"type:text[];index:idx_profiles_segments_gin,type:gin" json:"segments"`
	JourneyMaps pq.StringArray `gorm:"type:text[]" json:"journey_maps"`

	// Computed aggregates, replaced wholesale on re-evaluation
	EventStatistics json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"event_statistics"`
	DataLabels      pq.StringArray  `gorm:"type:text[]" json:"data_labels"`

	Consents ConsentMap `gorm:"type:jsonb;not null;default:'{}'" json:"consents"`

	// Enrichment output; written by the embedding worker, never computed here
	Embedding *pgvector.Vector `gorm:"type:vector(1536)" json:"-"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_profiles_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// AllowsChannel reports whether the profile has consented to the given channel
func (p *Profile) AllowsChannel(ch Channel) bool {
	return p.Consents[ch]
}

// HasContactPoint reports whether the profile is reachable on any channel
func (p *Profile) HasContactPoint() bool {
	return (p.PrimaryEmail != nil && *p.PrimaryEmail != "") ||
		(p.PrimaryPhone != nil && *p.PrimaryPhone != "")
}

// InSegment reports whether the profile currently belongs to the named segment
func (p *Profile) InSegment(segment string) bool {
	for _, s := range p.Segments {
		if s == segment {
			return true
		}
	}
	return false
}

// ProfileFilter represents filter criteria for profile queries
type ProfileFilter struct {
	ID              *int64
	ExternalKey     *string
	PrimaryEmail    *string
	PrimaryPhone    *string
	SegmentContains *string
	JourneyContains *string
	LabelContains   *string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
}
