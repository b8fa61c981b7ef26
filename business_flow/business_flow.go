// Package businessflow contains the business logic for the activation store.
package businessflow

import (
	"time"

	"github.com/kavehjm/Simorgh/app/dto"
	"github.com/kavehjm/Simorgh/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds caller-related information for audit trails
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToTenantDTO converts a tenant model for API responses
func ToTenantDTO(tenant models.Tenant) dto.TenantDTO {
	d := dto.TenantDTO{
		ID:        tenant.ID.String(),
		Name:      tenant.Name,
		Status:    tenant.Status.String(),
		CreatedAt: tenant.CreatedAt.Format(time.RFC3339),
	}
	if tenant.ArchivedAt != nil {
		archived := tenant.ArchivedAt.Format(time.RFC3339)
		d.ArchivedAt = &archived
	}
	return d
}

// ToProfileDTO converts a profile model for API responses
func ToProfileDTO(profile models.Profile) dto.ProfileDTO {
	consents := make(map[string]bool, len(profile.Consents))
	for ch, allowed := range profile.Consents {
		consents[string(ch)] = allowed
	}
	return dto.ProfileDTO{
		ID:              profile.ID,
		ExternalKey:     profile.ExternalKey,
		PrimaryEmail:    profile.PrimaryEmail,
		PrimaryPhone:    profile.PrimaryPhone,
		SecondaryEmails: profile.SecondaryEmails,
		SecondaryPhones: profile.SecondaryPhones,
		FirstName:       profile.FirstName,
		LastName:        profile.LastName,
		Segments:        profile.Segments,
		JourneyMaps:     profile.JourneyMaps,
		EventStatistics: profile.EventStatistics,
		DataLabels:      profile.DataLabels,
		Consents:        consents,
		HasEmbedding:    profile.Embedding != nil,
		CreatedAt:       profile.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       profile.UpdatedAt.Format(time.RFC3339),
	}
}

// ToMarketingEventDTO converts a marketing event model for API responses
func ToMarketingEventDTO(event models.MarketingEvent) dto.MarketingEventDTO {
	return dto.MarketingEventDTO{
		ID:              event.ID,
		Name:            event.Name,
		EventType:       event.EventType,
		Channel:         string(event.Channel),
		CampaignID:      event.CampaignID,
		Subject:         event.Subject,
		Body:            event.Body,
		EmbeddingStatus: string(event.EmbeddingStatus),
		CreatedAt:       event.CreatedAt.Format(time.RFC3339),
	}
}

// ToBehavioralEventDTO converts a ledger row for API responses
func ToBehavioralEventDTO(event models.BehavioralEvent) dto.BehavioralEventDTO {
	return dto.BehavioralEventDTO{
		ID:         event.ID,
		ProfileID:  event.ProfileID,
		EventName:  event.EventName,
		Properties: event.Properties,
		OccurredAt: event.OccurredAt.Format(time.RFC3339),
	}
}

// ToDeliveryAttemptDTO converts a ledger row for API responses
func ToDeliveryAttemptDTO(attempt models.DeliveryAttempt) dto.DeliveryAttemptDTO {
	return dto.DeliveryAttemptDTO{
		ID:               attempt.ID,
		ProfileID:        attempt.ProfileID,
		EventID:          attempt.EventID,
		Channel:          string(attempt.Channel),
		Status:           string(attempt.Status),
		Supersedes:       attempt.Supersedes,
		ProviderResponse: attempt.ProviderResponse,
		FailureReason:    attempt.FailureReason,
		OccurredAt:       attempt.OccurredAt.Format(time.RFC3339),
	}
}

// ToOutcomeDTO converts a ledger row for API responses
func ToOutcomeDTO(outcome models.Outcome) dto.OutcomeDTO {
	return dto.OutcomeDTO{
		ID:                outcome.ID,
		DeliveryAttemptID: outcome.DeliveryAttemptID,
		ProfileID:         outcome.ProfileID,
		OutcomeType:       string(outcome.OutcomeType),
		Metadata:          outcome.Metadata,
		OccurredAt:        outcome.OccurredAt.Format(time.RFC3339),
	}
}

// ToEmbeddingJobDTO converts an enrichment job for API responses
func ToEmbeddingJobDTO(job models.EmbeddingJob) dto.EmbeddingJobDTO {
	d := dto.EmbeddingJobDTO{
		ID:        job.ID,
		EventID:   job.EventID,
		Status:    string(job.Status),
		Attempts:  job.Attempts,
		LockedBy:  job.LockedBy,
		LastError: job.LastError,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	}
	if job.LockedAt != nil {
		locked := job.LockedAt.Format(time.RFC3339)
		d.LockedAt = &locked
	}
	return d
}

// ToSnapshotDTO converts a snapshot header for API responses
func ToSnapshotDTO(snapshot models.SegmentSnapshot) dto.SnapshotDTO {
	return dto.SnapshotDTO{
		SnapshotID:  snapshot.SnapshotID,
		SegmentName: snapshot.SegmentName,
		Version:     snapshot.Definition.Version,
		Labels:      snapshot.Definition.Labels,
		JourneyID:   snapshot.Definition.JourneyID,
		MemberCount: snapshot.MemberCount,
		CreatedAt:   snapshot.CreatedAt.Format(time.RFC3339),
	}
}

// ToDecisionDTO converts a decision record for API responses
func ToDecisionDTO(record models.DecisionRecord) dto.DecisionDTO {
	d := dto.DecisionDTO{
		TaskID:           record.TaskID,
		SnapshotID:       record.SnapshotID,
		EventID:          record.EventID,
		Status:           record.Status.String(),
		ReasoningSummary: record.Reasoning.Summary,
		ReasoningTrace:   record.Reasoning.Trace,
		Outcome:          record.Outcome,
		ErrorMessage:     record.ErrorMessage,
		Attempts:         record.Attempts,
		CreatedAt:        record.CreatedAt.Format(time.RFC3339),
	}
	if record.CompletedAt != nil {
		completed := record.CompletedAt.Format(time.RFC3339)
		d.CompletedAt = &completed
	}
	if record.FailedAt != nil {
		failed := record.FailedAt.Format(time.RFC3339)
		d.FailedAt = &failed
	}
	return d
}
