package dto

import "encoding/json"

// RecordDecisionRequest stores a new pending decision for an agent task
type RecordDecisionRequest struct {
	TaskID           string          `json:"task_id" validate:"required,max=120"`
	SnapshotID       string          `json:"snapshot_id" validate:"required,max=120"`
	EventID          string          `json:"event_id" validate:"required,len=64"`
	ReasoningSummary string          `json:"reasoning_summary" validate:"required"`
	ReasoningTrace   json.RawMessage `json:"reasoning_trace,omitempty"`
}

// CompleteDecisionRequest moves a pending decision to completed
type CompleteDecisionRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

// FailDecisionRequest moves a pending decision to failed. Retryable failures
// return the record to pending while attempts remain under the ceiling.
type FailDecisionRequest struct {
	ErrorMessage string `json:"error_message" validate:"required"`
	Retryable    bool   `json:"retryable"`
}

// DecisionDTO is the external representation of a decision record
type DecisionDTO struct {
	TaskID           string          `json:"task_id"`
	SnapshotID       string          `json:"snapshot_id"`
	EventID          string          `json:"event_id"`
	Status           string          `json:"status"`
	ReasoningSummary string          `json:"reasoning_summary"`
	ReasoningTrace   json.RawMessage `json:"reasoning_trace,omitempty"`
	Outcome          *string         `json:"outcome,omitempty"`
	ErrorMessage     *string         `json:"error_message,omitempty"`
	Attempts         int             `json:"attempts"`
	CreatedAt        string          `json:"created_at"`
	CompletedAt      *string         `json:"completed_at,omitempty"`
	FailedAt         *string         `json:"failed_at,omitempty"`
}

// DecisionTraceDTO replays a decision end to end: the frozen audience it
// targeted, the action it chose, and every delivery and outcome that followed
type DecisionTraceDTO struct {
	Decision   DecisionDTO          `json:"decision"`
	Snapshot   SnapshotDTO          `json:"snapshot"`
	Event      MarketingEventDTO    `json:"event"`
	Deliveries []DeliveryAttemptDTO `json:"deliveries"`
	Outcomes   []OutcomeDTO         `json:"outcomes"`
}
