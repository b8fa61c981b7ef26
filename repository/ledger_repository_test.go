package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	testingutil "github.com/kavehjm/Simorgh/testing"
	"github.com/kavehjm/Simorgh/utils"
)

func TestBehavioralEventLedger(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewBehavioralEventRepository(testDB.DB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		profile, err := fixtures.CreateTestProfile(tenant.ID)
		require.NoError(t, err)

		ctx := repository.WithTenant(testingutil.CreateTestContext(), tenant.ID)
		base := utils.UTCNow().Add(-time.Hour)

		t.Run("AppendStampsTenantAndPartition", func(t *testing.T) {
			event := &models.BehavioralEvent{
				ProfileID:  profile.ID,
				EventName:  "page_view",
				Properties: []byte(`{"path":"/pricing"}`),
				OccurredAt: base,
			}
			require.NoError(t, repo.Append(ctx, event))
			assert.Equal(t, tenant.ID, event.TenantID)
			assert.NotZero(t, event.ID)
			assert.Equal(t, models.PartitionKey(tenant.ID, base), event.PartitionKey)
		})

		t.Run("AppendedRowsAreImmutable", func(t *testing.T) {
			var row models.BehavioralEvent
			require.NoError(t, testDB.DB.Where("event_name = ?", "page_view").Last(&row).Error)

			row.EventName = "rewritten"
			assert.ErrorIs(t, testDB.DB.Save(&row).Error, models.ErrAppendOnly)
			assert.ErrorIs(t, testDB.DB.Delete(&row).Error, models.ErrAppendOnly)
		})

		t.Run("WindowReadsAreTimeOrdered", func(t *testing.T) {
			// Append out of order; reads come back in occurrence order
			for _, offset := range []time.Duration{30 * time.Minute, 10 * time.Minute, 20 * time.Minute} {
				event := &models.BehavioralEvent{
					ProfileID:  profile.ID,
					EventName:  "click",
					OccurredAt: base.Add(offset),
				}
				require.NoError(t, repo.Append(ctx, event))
			}

			name := "click"
			after := base.Add(5 * time.Minute)
			events, err := repo.ByFilter(ctx, models.BehavioralEventFilter{
				EventName:     &name,
				OccurredAfter: &after,
			}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, events, 3)
			for i := 1; i < len(events); i++ {
				assert.False(t, events[i].OccurredAt.Before(events[i-1].OccurredAt))
			}
		})

		t.Run("AppendBatchIsAtomic", func(t *testing.T) {
			batch := []*models.BehavioralEvent{
				{ProfileID: profile.ID, EventName: "purchase", OccurredAt: base},
				{ProfileID: profile.ID, EventName: "purchase", OccurredAt: base.Add(time.Minute)},
			}
			require.NoError(t, repo.AppendBatch(ctx, batch))

			name := "purchase"
			count, err := repo.Count(ctx, models.BehavioralEventFilter{EventName: &name})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		})

		t.Run("UnboundAppendFailsClosed", func(t *testing.T) {
			event := &models.BehavioralEvent{ProfileID: profile.ID, EventName: "smuggled"}
			err := repo.Append(testingutil.CreateTestContext(), event)
			assert.ErrorIs(t, err, repository.ErrIsolationViolation)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDeliveryAttemptLedger(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewDeliveryAttemptRepository(testDB.DB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		profile, err := fixtures.CreateTestProfile(tenant.ID)
		require.NoError(t, err)
		event, err := fixtures.CreateTestMarketingEvent(tenant.ID)
		require.NoError(t, err)

		ctx := repository.WithTenant(testingutil.CreateTestContext(), tenant.ID)

		t.Run("ResultSupersedesPendingRow", func(t *testing.T) {
			pending := &models.DeliveryAttempt{
				ProfileID: profile.ID,
				EventID:   event.ID,
				Channel:   models.ChannelEmail,
				Status:    models.DeliveryStatusPending,
			}
			require.NoError(t, repo.Append(ctx, pending))

			sent := &models.DeliveryAttempt{
				ProfileID:        profile.ID,
				EventID:          event.ID,
				Channel:          models.ChannelEmail,
				Status:           models.DeliveryStatusSent,
				Supersedes:       &pending.ID,
				ProviderResponse: []byte(`{"message_id":"m-1"}`),
			}
			require.NoError(t, repo.Append(ctx, sent))
			assert.Greater(t, sent.ID, pending.ID)

			// Both rows remain; the chain is the history
			attempts, err := repo.ByFilter(ctx, models.DeliveryAttemptFilter{EventID: &event.ID}, "", 0, 0)
			require.NoError(t, err)
			assert.Len(t, attempts, 2)
		})

		t.Run("TerminalRowsAreImmutable", func(t *testing.T) {
			var row models.DeliveryAttempt
			require.NoError(t, testDB.DB.Where("status = ?", models.DeliveryStatusSent).Last(&row).Error)

			row.Status = models.DeliveryStatusFailed
			assert.ErrorIs(t, testDB.DB.Save(&row).Error, models.ErrAppendOnly)
		})

		return nil
	})
	require.NoError(t, err)
}
