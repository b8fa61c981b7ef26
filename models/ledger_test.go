package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPartitionKey(t *testing.T) {
	tenantID := uuid.New()
	march := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	t.Run("StablePerTenantAndMonth", func(t *testing.T) {
		a := PartitionKey(tenantID, march)
		b := PartitionKey(tenantID, march.Add(48*time.Hour))
		assert.Equal(t, a, b)
		assert.True(t, strings.HasSuffix(a, "-202603"))
	})

	t.Run("MonthRollsThePartition", func(t *testing.T) {
		a := PartitionKey(tenantID, march)
		b := PartitionKey(tenantID, march.AddDate(0, 1, 0))
		assert.NotEqual(t, a, b)
	})

	t.Run("UTCNormalization", func(t *testing.T) {
		// 23:30 on March 31 in UTC+2 is still March in UTC
		local := time.Date(2026, 4, 1, 0, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))
		assert.True(t, strings.HasSuffix(PartitionKey(tenantID, local), "-202603"))
	})
}

func TestLedgerIDsAreTimeOrdered(t *testing.T) {
	prev := NextLedgerID()
	for i := 0; i < 100; i++ {
		next := NextLedgerID()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestBehavioralEventHooks(t *testing.T) {
	event := &BehavioralEvent{
		TenantID:  uuid.New(),
		ProfileID: 1,
		EventName: "page_view",
	}

	require.NoError(t, event.BeforeCreate(&gorm.DB{}))
	assert.NotZero(t, event.ID)
	assert.False(t, event.OccurredAt.IsZero())
	assert.Equal(t, PartitionKey(event.TenantID, event.OccurredAt), event.PartitionKey)

	assert.ErrorIs(t, event.BeforeUpdate(&gorm.DB{}), ErrAppendOnly)
	assert.ErrorIs(t, event.BeforeDelete(&gorm.DB{}), ErrAppendOnly)
}

func TestDeliveryAttemptHooks(t *testing.T) {
	attempt := &DeliveryAttempt{
		TenantID:  uuid.New(),
		ProfileID: 1,
		EventID:   strings.Repeat("a", 64),
		Channel:   ChannelEmail,
	}

	require.NoError(t, attempt.BeforeCreate(&gorm.DB{}))
	assert.Equal(t, DeliveryStatusPending, attempt.Status)

	assert.ErrorIs(t, attempt.BeforeUpdate(&gorm.DB{}), ErrAppendOnly)
	assert.ErrorIs(t, attempt.BeforeDelete(&gorm.DB{}), ErrAppendOnly)
}

func TestSnapshotHooksRejectMutation(t *testing.T) {
	snapshot := &SegmentSnapshot{SnapshotID: "snap-1"}
	assert.ErrorIs(t, snapshot.BeforeUpdate(&gorm.DB{}), ErrFrozenSnapshot)
	assert.ErrorIs(t, snapshot.BeforeDelete(&gorm.DB{}), ErrFrozenSnapshot)

	member := &SnapshotMember{SnapshotID: "snap-1", ProfileID: 1}
	assert.ErrorIs(t, member.BeforeUpdate(&gorm.DB{}), ErrFrozenSnapshot)
	assert.ErrorIs(t, member.BeforeDelete(&gorm.DB{}), ErrFrozenSnapshot)
}

func TestEmbeddingJobLockStaleness(t *testing.T) {
	now := time.Now().UTC()
	old := now.Add(-time.Hour)

	t.Run("ProcessingWithExpiredLease", func(t *testing.T) {
		job := &EmbeddingJob{Status: EmbeddingJobStatusProcessing, LockedAt: &old}
		assert.True(t, job.LockIsStale(10*time.Minute, now))
		assert.False(t, job.LockIsStale(2*time.Hour, now))
	})

	t.Run("OnlyProcessingJobsGoStale", func(t *testing.T) {
		job := &EmbeddingJob{Status: EmbeddingJobStatusPending, LockedAt: &old}
		assert.False(t, job.LockIsStale(10*time.Minute, now))

		job = &EmbeddingJob{Status: EmbeddingJobStatusProcessing}
		assert.False(t, job.LockIsStale(10*time.Minute, now))
	})
}
