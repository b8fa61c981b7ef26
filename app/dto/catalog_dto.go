package dto

import "encoding/json"

// UpsertProfileRequest carries the full desired state of a profile. Upserts
// are last-writer-wins on the whole record.
type UpsertProfileRequest struct {
	ExternalKey     string          `json:"external_key" validate:"required,max=255"`
	PrimaryEmail    *string         `json:"primary_email,omitempty" validate:"omitempty,email"`
	PrimaryPhone    *string         `json:"primary_phone,omitempty" validate:"omitempty,e164"`
	SecondaryEmails []string        `json:"secondary_emails,omitempty" validate:"omitempty,dive,email"`
	SecondaryPhones []string        `json:"secondary_phones,omitempty" validate:"omitempty,dive,e164"`
	FirstName       *string         `json:"first_name,omitempty" validate:"omitempty,max=255"`
	LastName        *string         `json:"last_name,omitempty" validate:"omitempty,max=255"`
	Segments        []string        `json:"segments,omitempty"`
	JourneyMaps     []string        `json:"journey_maps,omitempty"`
	EventStatistics json.RawMessage `json:"event_statistics,omitempty"`
	DataLabels      []string        `json:"data_labels,omitempty"`
	Consents        map[string]bool `json:"consents,omitempty"`
}

// ProfileDTO is the external representation of a profile
type ProfileDTO struct {
	ID              int64           `json:"id"`
	ExternalKey     string          `json:"external_key"`
	PrimaryEmail    *string         `json:"primary_email,omitempty"`
	PrimaryPhone    *string         `json:"primary_phone,omitempty"`
	SecondaryEmails []string        `json:"secondary_emails,omitempty"`
	SecondaryPhones []string        `json:"secondary_phones,omitempty"`
	FirstName       *string         `json:"first_name,omitempty"`
	LastName        *string         `json:"last_name,omitempty"`
	Segments        []string        `json:"segments"`
	JourneyMaps     []string        `json:"journey_maps"`
	EventStatistics json.RawMessage `json:"event_statistics"`
	DataLabels      []string        `json:"data_labels"`
	Consents        map[string]bool `json:"consents"`
	HasEmbedding    bool            `json:"has_embedding"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// ContactPointDTO is one consent-cleared way to reach a profile
type ContactPointDTO struct {
	ProfileID   int64  `json:"profile_id"`
	ExternalKey string `json:"external_key"`
	Channel     string `json:"channel"`
	Address     string `json:"address"`
}

// CreateMarketingEventRequest registers a definitional action in the catalog
type CreateMarketingEventRequest struct {
	Name       string  `json:"name" validate:"required,max=255"`
	EventType  string  `json:"event_type" validate:"required,max=60"`
	Channel    string  `json:"channel" validate:"required,oneof=email sms push"`
	CampaignID *string `json:"campaign_id,omitempty" validate:"omitempty,max=64"`
	Subject    *string `json:"subject,omitempty" validate:"omitempty,max=500"`
	Body       *string `json:"body,omitempty"`
}

// UpdateMarketingEventContentRequest edits embeddable content in place.
// Identity never changes; the embedding is recomputed asynchronously.
type UpdateMarketingEventContentRequest struct {
	Subject *string `json:"subject,omitempty" validate:"omitempty,max=500"`
	Body    *string `json:"body,omitempty"`
}

// ListEmbeddingJobsRequest filters the enrichment queue view
type ListEmbeddingJobsRequest struct {
	Status   string `json:"status,omitempty" query:"status" validate:"omitempty,oneof=pending processing completed failed"`
	Page     int    `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize int    `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=1000"`
}

// EmbeddingJobDTO is the external representation of an enrichment job
type EmbeddingJobDTO struct {
	ID        uint    `json:"id"`
	EventID   string  `json:"event_id"`
	Status    string  `json:"status"`
	Attempts  int     `json:"attempts"`
	LockedBy  *string `json:"locked_by,omitempty"`
	LockedAt  *string `json:"locked_at,omitempty"`
	LastError *string `json:"last_error,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// MarketingEventDTO is the external representation of a marketing event
type MarketingEventDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	EventType       string  `json:"event_type"`
	Channel         string  `json:"channel"`
	CampaignID      *string `json:"campaign_id,omitempty"`
	Subject         *string `json:"subject,omitempty"`
	Body            *string `json:"body,omitempty"`
	EmbeddingStatus string  `json:"embedding_status"`
	CreatedAt       string  `json:"created_at"`
}
