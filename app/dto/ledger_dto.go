package dto

import (
	"encoding/json"
	"time"
)

// AppendBehavioralEventRequest records one behavioral fact about a profile
type AppendBehavioralEventRequest struct {
	ProfileID  int64           `json:"profile_id" validate:"required"`
	EventName  string          `json:"event_name" validate:"required,max=120"`
	Properties json.RawMessage `json:"properties,omitempty"`
	OccurredAt *time.Time      `json:"occurred_at,omitempty"`
}

// BehavioralEventDTO is the external representation of a behavioral fact
type BehavioralEventDTO struct {
	ID         int64           `json:"id"`
	ProfileID  int64           `json:"profile_id"`
	EventName  string          `json:"event_name"`
	Properties json.RawMessage `json:"properties"`
	OccurredAt string          `json:"occurred_at"`
}

// RecordDeliveryRequest appends the pending row before an external send
type RecordDeliveryRequest struct {
	ProfileID int64  `json:"profile_id" validate:"required"`
	EventID   string `json:"event_id" validate:"required,len=64"`
	Channel   string `json:"channel" validate:"required,oneof=email sms push"`
}

// RecordDeliveryResultRequest appends the provider-response row after the
// external send, superseding the pending row
type RecordDeliveryResultRequest struct {
	Supersedes       int64           `json:"supersedes" validate:"required"`
	Status           string          `json:"status" validate:"required,oneof=sent failed"`
	ProviderResponse json.RawMessage `json:"provider_response,omitempty"`
	FailureReason    *string         `json:"failure_reason,omitempty"`
}

// DeliveryAttemptDTO is the external representation of a delivery row
type DeliveryAttemptDTO struct {
	ID               int64           `json:"id"`
	ProfileID        int64           `json:"profile_id"`
	EventID          string          `json:"event_id"`
	Channel          string          `json:"channel"`
	Status           string          `json:"status"`
	Supersedes       *int64          `json:"supersedes,omitempty"`
	ProviderResponse json.RawMessage `json:"provider_response,omitempty"`
	FailureReason    *string         `json:"failure_reason,omitempty"`
	OccurredAt       string          `json:"occurred_at"`
}

// RecordOutcomeRequest attributes a result back to a delivery attempt
type RecordOutcomeRequest struct {
	DeliveryAttemptID int64           `json:"delivery_attempt_id" validate:"required"`
	ProfileID         int64           `json:"profile_id" validate:"required"`
	OutcomeType       string          `json:"outcome_type" validate:"required,oneof=open click conversion unsubscribe bounce"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	OccurredAt        *time.Time      `json:"occurred_at,omitempty"`
}

// OutcomeDTO is the external representation of an attributed outcome
type OutcomeDTO struct {
	ID                int64           `json:"id"`
	DeliveryAttemptID int64           `json:"delivery_attempt_id"`
	ProfileID         int64           `json:"profile_id"`
	OutcomeType       string          `json:"outcome_type"`
	Metadata          json.RawMessage `json:"metadata"`
	OccurredAt        string          `json:"occurred_at"`
}

// LedgerWindowRequest is a time-window read over one of the ledgers
type LedgerWindowRequest struct {
	ProfileID *int64     `json:"profile_id,omitempty" query:"profile_id"`
	From      *time.Time `json:"from,omitempty" query:"from"`
	To        *time.Time `json:"to,omitempty" query:"to"`
	Page      int        `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize  int        `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=1000"`
}
