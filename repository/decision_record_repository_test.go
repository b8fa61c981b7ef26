package repository_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	testingutil "github.com/kavehjm/Simorgh/testing"
	"github.com/kavehjm/Simorgh/utils"
)

var errNotPending = errors.New("decision is not pending")

func TestDecisionRecordRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewDecisionRecordRepository(testDB.DB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		event, err := fixtures.CreateTestMarketingEvent(tenant.ID)
		require.NoError(t, err)
		profile, err := fixtures.CreateTestProfile(tenant.ID, "vip")
		require.NoError(t, err)
		snapshot, err := fixtures.CreateTestSnapshot(tenant.ID, "vip", profile.ID)
		require.NoError(t, err)

		ctx := repository.WithTenant(testingutil.CreateTestContext(), tenant.ID)

		t.Run("TransitionCompletesPendingDecision", func(t *testing.T) {
			decision, err := fixtures.CreateTestDecision(tenant.ID, snapshot.SnapshotID, event.ID)
			require.NoError(t, err)

			updated, err := repo.Transition(ctx, decision.TaskID, func(d *models.DecisionRecord) error {
				if !d.CanTransitionTo(models.DecisionStatusCompleted) {
					return errNotPending
				}
				d.Status = models.DecisionStatusCompleted
				d.Outcome = utils.ToPtr("dispatched")
				d.CompletedAt = utils.ToPtr(utils.UTCNow())
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, models.DecisionStatusCompleted, updated.Status)
			assert.NotNil(t, updated.CompletedAt)
		})

		t.Run("FirstTerminalTransitionWins", func(t *testing.T) {
			decision, err := fixtures.CreateTestDecision(tenant.ID, snapshot.SnapshotID, event.ID)
			require.NoError(t, err)

			complete := func(d *models.DecisionRecord) error {
				if !d.CanTransitionTo(models.DecisionStatusCompleted) {
					return errNotPending
				}
				d.Status = models.DecisionStatusCompleted
				return nil
			}

			_, err = repo.Transition(ctx, decision.TaskID, complete)
			require.NoError(t, err)

			// The second transition sees the terminal state and must refuse
			_, err = repo.Transition(ctx, decision.TaskID, complete)
			assert.Error(t, err)

			reloaded, err := repo.ByTaskID(ctx, decision.TaskID)
			require.NoError(t, err)
			assert.Equal(t, models.DecisionStatusCompleted, reloaded.Status)
		})

		t.Run("TransitionUnknownTask", func(t *testing.T) {
			_, err := repo.Transition(ctx, "no-such-task", func(d *models.DecisionRecord) error {
				return nil
			})
			assert.ErrorIs(t, err, repository.ErrDecisionNotFound)
		})

		t.Run("TransitionRequiresBinding", func(t *testing.T) {
			_, err := repo.Transition(testingutil.CreateTestContext(), "any", func(d *models.DecisionRecord) error {
				return nil
			})
			assert.ErrorIs(t, err, repository.ErrIsolationViolation)
		})

		t.Run("SameTaskIDAcrossTenants", func(t *testing.T) {
			// Task IDs are tenant-scoped: both tenants may record the same
			// task identifier and drive it independently
			other, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			otherEvent, err := fixtures.CreateTestMarketingEvent(other.ID)
			require.NoError(t, err)
			otherProfile, err := fixtures.CreateTestProfile(other.ID, "vip")
			require.NoError(t, err)
			otherSnapshot, err := fixtures.CreateTestSnapshot(other.ID, "vip", otherProfile.ID)
			require.NoError(t, err)
			otherCtx := repository.WithTenant(testingutil.CreateTestContext(), other.ID)

			first := &models.DecisionRecord{
				TaskID:     "shared-task",
				TenantID:   tenant.ID,
				SnapshotID: snapshot.SnapshotID,
				EventID:    event.ID,
				Status:     models.DecisionStatusPending,
			}
			require.NoError(t, repo.Save(ctx, first))

			second := &models.DecisionRecord{
				TaskID:     "shared-task",
				TenantID:   other.ID,
				SnapshotID: otherSnapshot.SnapshotID,
				EventID:    otherEvent.ID,
				Status:     models.DecisionStatusPending,
			}
			require.NoError(t, repo.Save(otherCtx, second))

			// Completing one leaves the other pending
			_, err = repo.Transition(otherCtx, "shared-task", func(d *models.DecisionRecord) error {
				d.Status = models.DecisionStatusCompleted
				return nil
			})
			require.NoError(t, err)

			mine, err := repo.ByTaskID(ctx, "shared-task")
			require.NoError(t, err)
			assert.Equal(t, models.DecisionStatusPending, mine.Status)
		})

		t.Run("ForeignTenantCannotTransition", func(t *testing.T) {
			other, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			decision, err := fixtures.CreateTestDecision(tenant.ID, snapshot.SnapshotID, event.ID)
			require.NoError(t, err)

			otherCtx := repository.WithTenant(testingutil.CreateTestContext(), other.ID)
			_, err = repo.Transition(otherCtx, decision.TaskID, func(d *models.DecisionRecord) error {
				return nil
			})
			assert.ErrorIs(t, err, repository.ErrDecisionNotFound)
		})

		return nil
	})
	require.NoError(t, err)
}
