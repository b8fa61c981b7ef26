package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestComputeEventID(t *testing.T) {
	tenantID := uuid.New()
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	campaign := "camp-1"

	t.Run("Deterministic", func(t *testing.T) {
		a := ComputeEventID("promo", "email_blast", ChannelEmail, &campaign, tenantID, createdAt)
		b := ComputeEventID("promo", "email_blast", ChannelEmail, &campaign, tenantID, createdAt)
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("EveryFieldParticipates", func(t *testing.T) {
		base := ComputeEventID("promo", "email_blast", ChannelEmail, &campaign, tenantID, createdAt)

		assert.NotEqual(t, base, ComputeEventID("promo2", "email_blast", ChannelEmail, &campaign, tenantID, createdAt))
		assert.NotEqual(t, base, ComputeEventID("promo", "sms_blast", ChannelEmail, &campaign, tenantID, createdAt))
		assert.NotEqual(t, base, ComputeEventID("promo", "email_blast", ChannelSMS, &campaign, tenantID, createdAt))
		assert.NotEqual(t, base, ComputeEventID("promo", "email_blast", ChannelEmail, nil, tenantID, createdAt))
		assert.NotEqual(t, base, ComputeEventID("promo", "email_blast", ChannelEmail, &campaign, uuid.New(), createdAt))
		assert.NotEqual(t, base, ComputeEventID("promo", "email_blast", ChannelEmail, &campaign, tenantID, createdAt.Add(time.Nanosecond)))
	})

	t.Run("FieldBoundariesDoNotCollide", func(t *testing.T) {
		// "ab" + "c" must not hash like "a" + "bc"
		a := ComputeEventID("ab", "c", ChannelEmail, nil, tenantID, createdAt)
		b := ComputeEventID("a", "bc", ChannelEmail, nil, tenantID, createdAt)
		assert.NotEqual(t, a, b)
	})

	t.Run("TimestampMakesRetriesDistinct", func(t *testing.T) {
		first := ComputeEventID("promo", "email_blast", ChannelEmail, nil, tenantID, createdAt)
		retry := ComputeEventID("promo", "email_blast", ChannelEmail, nil, tenantID, createdAt.Add(time.Second))
		assert.NotEqual(t, first, retry)
	})
}

func TestMarketingEventBeforeCreate(t *testing.T) {
	event := &MarketingEvent{
		TenantID:  uuid.New(),
		Name:      "welcome",
		EventType: "onboarding",
		Channel:   ChannelEmail,
	}

	require.NoError(t, event.BeforeCreate(&gorm.DB{}))

	assert.False(t, event.CreatedAt.IsZero())
	assert.Equal(t, EmbeddingStatusPending, event.EmbeddingStatus)
	assert.Equal(t, ComputeEventID(event.Name, event.EventType, event.Channel, nil, event.TenantID, event.CreatedAt), event.ID)

	// The address is computed exactly once
	original := event.ID
	event.Name = "renamed"
	require.NoError(t, event.BeforeCreate(&gorm.DB{}))
	assert.Equal(t, original, event.ID)
}

func TestEmbeddableText(t *testing.T) {
	subject := "Big news"
	body := "We shipped."

	event := &MarketingEvent{Name: "launch"}
	assert.Equal(t, "launch", event.EmbeddableText())

	event.Subject = &subject
	event.Body = &body
	assert.Equal(t, "launch\nBig news\nWe shipped.", event.EmbeddableText())

	empty := ""
	event.Subject = &empty
	assert.Equal(t, "launch\nWe shipped.", event.EmbeddableText())
}
