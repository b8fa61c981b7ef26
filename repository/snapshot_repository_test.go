package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	testingutil "github.com/kavehjm/Simorgh/testing"
)

func TestSnapshotRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewSnapshotRepository(testDB.DB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)

		p1, err := fixtures.CreateTestProfile(tenant.ID, "vip")
		require.NoError(t, err)
		p2, err := fixtures.CreateTestProfile(tenant.ID, "vip")
		require.NoError(t, err)

		ctx := repository.WithTenant(testingutil.CreateTestContext(), tenant.ID)

		t.Run("CreateFreezesMembership", func(t *testing.T) {
			snapshot := &models.SegmentSnapshot{
				SnapshotID:  "snap-vip-1",
				SegmentName: "vip",
				Definition:  models.SegmentDefinition{SegmentName: "vip"},
			}
			require.NoError(t, repo.CreateWithMembers(ctx, snapshot, []int64{p1.ID, p2.ID}))
			assert.Equal(t, int64(2), snapshot.MemberCount)

			members, err := repo.Members(ctx, "snap-vip-1")
			require.NoError(t, err)
			assert.Equal(t, []int64{p1.ID, p2.ID}, members)
		})

		t.Run("RecreateIsIdempotent", func(t *testing.T) {
			// Re-submitting the same ID with different members keeps the
			// original frozen set
			snapshot := &models.SegmentSnapshot{
				SnapshotID:  "snap-vip-1",
				SegmentName: "vip",
				Definition:  models.SegmentDefinition{SegmentName: "vip"},
			}
			require.NoError(t, repo.CreateWithMembers(ctx, snapshot, []int64{p1.ID}))
			assert.Equal(t, int64(2), snapshot.MemberCount)

			members, err := repo.Members(ctx, "snap-vip-1")
			require.NoError(t, err)
			assert.Equal(t, []int64{p1.ID, p2.ID}, members)
		})

		t.Run("FrozenHeaderRejectsMutation", func(t *testing.T) {
			var header models.SegmentSnapshot
			require.NoError(t, testDB.DB.Where("snapshot_id = ?", "snap-vip-1").Last(&header).Error)

			header.SegmentName = "rewritten"
			err := testDB.DB.Save(&header).Error
			assert.ErrorIs(t, err, models.ErrFrozenSnapshot)

			err = testDB.DB.Delete(&header).Error
			assert.ErrorIs(t, err, models.ErrFrozenSnapshot)
		})

		t.Run("FrozenMembersRejectMutation", func(t *testing.T) {
			var member models.SnapshotMember
			require.NoError(t, testDB.DB.Where("snapshot_id = ?", "snap-vip-1").Last(&member).Error)

			err := testDB.DB.Delete(&member).Error
			assert.ErrorIs(t, err, models.ErrFrozenSnapshot)
		})

		t.Run("MembershipSurvivesProfileDrift", func(t *testing.T) {
			// The profile leaves the segment; the frozen set must not move
			require.NoError(t, testDB.DB.Model(&models.Profile{}).
				Where("id = ?", p1.ID).
				Update("segments", `{}`).Error)

			members, err := repo.Members(ctx, "snap-vip-1")
			require.NoError(t, err)
			assert.Equal(t, []int64{p1.ID, p2.ID}, members)
		})

		t.Run("UnboundCreateFailsClosed", func(t *testing.T) {
			snapshot := &models.SegmentSnapshot{
				SnapshotID:  "snap-unbound",
				SegmentName: "vip",
				Definition:  models.SegmentDefinition{SegmentName: "vip"},
			}
			err := repo.CreateWithMembers(testingutil.CreateTestContext(), snapshot, []int64{p1.ID})
			assert.ErrorIs(t, err, repository.ErrIsolationViolation)
		})

		t.Run("SameSnapshotIDAcrossTenants", func(t *testing.T) {
			// Snapshot IDs are tenant-scoped: another tenant freezing under
			// an already used ID gets its own independent snapshot
			other, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			otherProfile, err := fixtures.CreateTestProfile(other.ID, "vip")
			require.NoError(t, err)
			otherCtx := repository.WithTenant(testingutil.CreateTestContext(), other.ID)

			snapshot := &models.SegmentSnapshot{
				SnapshotID:  "snap-vip-1",
				SegmentName: "vip",
				Definition:  models.SegmentDefinition{SegmentName: "vip"},
			}
			require.NoError(t, repo.CreateWithMembers(otherCtx, snapshot, []int64{otherProfile.ID}))
			assert.Equal(t, int64(1), snapshot.MemberCount)
			assert.Equal(t, other.ID, snapshot.TenantID)

			members, err := repo.Members(otherCtx, "snap-vip-1")
			require.NoError(t, err)
			assert.Equal(t, []int64{otherProfile.ID}, members)

			// The first tenant's frozen set is untouched
			members, err = repo.Members(ctx, "snap-vip-1")
			require.NoError(t, err)
			assert.Equal(t, []int64{p1.ID, p2.ID}, members)
		})

		t.Run("ListBySegment", func(t *testing.T) {
			segment := "vip"
			snapshots, err := repo.ByFilter(ctx, models.SegmentSnapshotFilter{SegmentName: &segment}, "created_at DESC", 10, 0)
			require.NoError(t, err)
			require.Len(t, snapshots, 1)
			assert.Equal(t, "snap-vip-1", snapshots[0].SnapshotID)
		})

		return nil
	})
	require.NoError(t, err)
}
