// Package testing provides test utilities and database setup for testing the decision and audit store
package testing

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTenant creates an active tenant with a known API secret hash
func (tf *TestFixtures) CreateTestTenant() (*models.Tenant, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("test-api-secret"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash test secret: %w", err)
	}

	tenant := &models.Tenant{
		ID:            uuid.New(),
		Name:          fmt.Sprintf("tenant-%d", rand.Intn(1000000)),
		Status:        models.TenantStatusActive,
		APISecretHash: string(hash),
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}

	return tenant, nil
}

// CreateTestProfile creates a consented, reachable profile in the given tenant
func (tf *TestFixtures) CreateTestProfile(tenantID uuid.UUID, segments ...string) (*models.Profile, error) {
	suffix := rand.Intn(1000000)

	profile := &models.Profile{
		TenantID:     tenantID,
		ExternalKey:  fmt.Sprintf("ext-%d", suffix),
		PrimaryEmail: utils.ToPtr(fmt.Sprintf("person%d@example.com", suffix)),
		PrimaryPhone: utils.ToPtr(fmt.Sprintf("+1555%07d", suffix)),
		FirstName:    utils.ToPtr("Ada"),
		LastName:     utils.ToPtr("Lovelace"),
		Segments:     segments,
		Consents: models.ConsentMap{
			models.ChannelEmail: true,
			models.ChannelSMS:   true,
		},
		EventStatistics: []byte("{}"),
	}

	if err := tf.DB.DB.Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create test profile: %w", err)
	}

	return profile, nil
}

// CreateTestMarketingEvent creates a marketing event with embeddable content
func (tf *TestFixtures) CreateTestMarketingEvent(tenantID uuid.UUID) (*models.MarketingEvent, error) {
	event := &models.MarketingEvent{
		TenantID:  tenantID,
		Name:      fmt.Sprintf("spring-promo-%d", rand.Intn(1000000)),
		EventType: "promo",
		Channel:   models.ChannelEmail,
		Subject:   utils.ToPtr("Spring savings inside"),
		Body:      utils.ToPtr("Save 20% on your next order."),
	}

	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test marketing event: %w", err)
	}

	return event, nil
}

// CreateTestSnapshot freezes a snapshot header with the given members
func (tf *TestFixtures) CreateTestSnapshot(tenantID uuid.UUID, segmentName string, profileIDs ...int64) (*models.SegmentSnapshot, error) {
	snapshot := &models.SegmentSnapshot{
		SnapshotID:  fmt.Sprintf("snap-%d", rand.Intn(1000000)),
		TenantID:    tenantID,
		SegmentName: segmentName,
		Definition: models.SegmentDefinition{
			SegmentName: segmentName,
		},
		MemberCount: int64(len(profileIDs)),
	}

	if err := tf.DB.DB.Create(snapshot).Error; err != nil {
		return nil, fmt.Errorf("failed to create test snapshot: %w", err)
	}

	for _, profileID := range profileIDs {
		member := &models.SnapshotMember{
			SnapshotID: snapshot.SnapshotID,
			TenantID:   tenantID,
			ProfileID:  profileID,
		}
		if err := tf.DB.DB.Create(member).Error; err != nil {
			return nil, fmt.Errorf("failed to create test snapshot member: %w", err)
		}
	}

	return snapshot, nil
}

// CreateTestDecision creates a pending decision record referencing the given
// snapshot and event
func (tf *TestFixtures) CreateTestDecision(tenantID uuid.UUID, snapshotID, eventID string) (*models.DecisionRecord, error) {
	decision := &models.DecisionRecord{
		TaskID:     fmt.Sprintf("task-%d", rand.Intn(1000000)),
		TenantID:   tenantID,
		SnapshotID: snapshotID,
		EventID:    eventID,
		Status:     models.DecisionStatusPending,
		Reasoning: models.DecisionReasoning{
			Summary: "high predicted conversion for this segment",
		},
	}

	if err := tf.DB.DB.Create(decision).Error; err != nil {
		return nil, fmt.Errorf("failed to create test decision: %w", err)
	}

	return decision, nil
}

// CreateTestEmbeddingJob enqueues a pending enrichment job for an event
func (tf *TestFixtures) CreateTestEmbeddingJob(tenantID uuid.UUID, eventID string) (*models.EmbeddingJob, error) {
	job := &models.EmbeddingJob{
		TenantID: tenantID,
		EventID:  eventID,
		Status:   models.EmbeddingJobStatusPending,
	}

	if err := tf.DB.DB.Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create test embedding job: %w", err)
	}

	return job, nil
}
