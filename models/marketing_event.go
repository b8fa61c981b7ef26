package models

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/zeebo/blake3"
	"gorm.io/gorm"
)

// EmbeddingStatus tracks the enrichment state of a marketing event's content
type EmbeddingStatus string

const (
	EmbeddingStatusPending   EmbeddingStatus = "pending"
	EmbeddingStatusCompleted EmbeddingStatus = "completed"
	EmbeddingStatusFailed    EmbeddingStatus = "failed"
)

// Valid checks if the status is valid
func (s EmbeddingStatus) Valid() bool {
	switch s {
	case EmbeddingStatusPending, EmbeddingStatusCompleted, EmbeddingStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for EmbeddingStatus
func (s *EmbeddingStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = EmbeddingStatus(v)
	case []byte:
		*s = EmbeddingStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into EmbeddingStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for EmbeddingStatus
func (s EmbeddingStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid EmbeddingStatus: %s", s)
	}
	return string(s), nil
}

// MarketingEvent is a definitional entity: a reusable, content-addressed
// description of a possible action (e.g. a promo email under a campaign).
//
// The identifier is a blake3 hash over the canonical tuple of defining fields
// plus the creation timestamp, computed once at creation and never recomputed.
// Content edits do not change identity. Because the timestamp participates in
// the hash, retried creation of a logically identical event yields a distinct
// identifier; callers wanting true deduplication must supply their own
// idempotency key upstream.
type MarketingEvent struct {
	ID       string    `gorm:"size:64;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_marketing_events_tenant_id" json:"tenant_id"`

	Name       string  `gorm:"size:255;not null;index:idx_marketing_events_name" json:"name"`
	EventType  string  `gorm:"size:60;not null;index:idx_marketing_events_event_type" json:"event_type"`
	Channel    Channel `gorm:"size:20;not null" json:"channel"`
	CampaignID *string `gorm:"size:64;index:idx_marketing_events_campaign_id" json:"campaign_id,omitempty"`

	// Embeddable content; edits here reset EmbeddingStatus and enqueue a job
	Subject *string `gorm:"size:500" json:"subject,omitempty"`
	Body    *string `gorm:"type:text" json:"body,omitempty"`

	EmbeddingStatus EmbeddingStatus  `gorm:"size:20;not null;default:'pending';index:idx_marketing_events_embedding_status" json:"embedding_status"`
	Embedding       *pgvector.Vector `gorm:"type:vector(1536)" json:"-"`

	CreatedAt time.Time `gorm:"not null;index:idx_marketing_events_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (MarketingEvent) TableName() string {
	return "marketing_events"
}

// ComputeEventID derives the deterministic content address for a marketing
// event. The canonical tuple is name, type, channel, parent campaign, tenant,
// and creation timestamp, joined with a field separator that cannot occur in
// the inputs' canonical forms.
func ComputeEventID(name, eventType string, channel Channel, campaignID *string, tenantID uuid.UUID, createdAt time.Time) string {
	campaign := ""
	if campaignID != nil {
		campaign = *campaignID
	}
	canonical := strings.Join([]string{
		name,
		eventType,
		string(channel),
		campaign,
		tenantID.String(),
		createdAt.UTC().Format(time.RFC3339Nano),
	}, "\x1f")

	sum := blake3.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// BeforeCreate computes the content address exactly once
func (e *MarketingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.EmbeddingStatus == "" {
		e.EmbeddingStatus = EmbeddingStatusPending
	}
	if e.ID == "" {
		e.ID = ComputeEventID(e.Name, e.EventType, e.Channel, e.CampaignID, e.TenantID, e.CreatedAt)
	}
	return nil
}

// EmbeddableText concatenates the fields the enrichment worker vectorizes
func (e *MarketingEvent) EmbeddableText() string {
	parts := []string{e.Name}
	if e.Subject != nil && *e.Subject != "" {
		parts = append(parts, *e.Subject)
	}
	if e.Body != nil && *e.Body != "" {
		parts = append(parts, *e.Body)
	}
	return strings.Join(parts, "\n")
}

// MarketingEventFilter represents filter criteria for marketing event queries
type MarketingEventFilter struct {
	ID              *string
	Name            *string
	EventType       *string
	Channel         *Channel
	CampaignID      *string
	EmbeddingStatus *EmbeddingStatus
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
}
