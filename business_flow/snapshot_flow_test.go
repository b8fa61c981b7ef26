package businessflow_test

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavehjm/Simorgh/app/dto"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	testingutil "github.com/kavehjm/Simorgh/testing"
	"github.com/kavehjm/Simorgh/utils"
)

func TestSnapshotFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		profileRepo := repository.NewProfileRepository(testDB.DB)
		flow := businessflow.NewSnapshotFlow(repository.NewSnapshotRepository(testDB.DB), profileRepo)
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		ctx := repository.WithTenant(testingutil.CreateTestContext(), tenant.ID)

		seed := func(key string, segments, labels, journeys []string) *models.Profile {
			p := &models.Profile{
				TenantID:        tenant.ID,
				ExternalKey:     key,
				Segments:        pq.StringArray(segments),
				DataLabels:      pq.StringArray(labels),
				JourneyMaps:     pq.StringArray(journeys),
				EventStatistics: []byte("{}"),
			}
			require.NoError(t, profileRepo.Save(ctx, p))
			return p
		}

		plain := seed("ext-plain", []string{"vip"}, nil, nil)
		labeled := seed("ext-labeled", []string{"vip"}, []string{"priority"}, nil)
		onJourney := seed("ext-journey", []string{"vip"}, []string{"priority"}, []string{"j-onboarding"})
		seed("ext-other", []string{"churned"}, []string{"priority"}, []string{"j-onboarding"})

		t.Run("FreezesSegmentMembership", func(t *testing.T) {
			snapshot, err := flow.CreateSnapshot(ctx, &dto.CreateSnapshotRequest{
				SnapshotID:  "snap-vip",
				SegmentName: "vip",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, int64(3), snapshot.MemberCount)

			members, err := flow.GetMembers(ctx, "snap-vip")
			require.NoError(t, err)
			assert.ElementsMatch(t, []int64{plain.ID, labeled.ID, onJourney.ID}, members.ProfileIDs)
		})

		t.Run("LabelsNarrowMembership", func(t *testing.T) {
			snapshot, err := flow.CreateSnapshot(ctx, &dto.CreateSnapshotRequest{
				SnapshotID:  "snap-vip-priority",
				SegmentName: "vip",
				Labels:      []string{"priority"},
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, int64(2), snapshot.MemberCount)

			members, err := flow.GetMembers(ctx, "snap-vip-priority")
			require.NoError(t, err)
			assert.ElementsMatch(t, []int64{labeled.ID, onJourney.ID}, members.ProfileIDs)
		})

		t.Run("JourneyNarrowsMembership", func(t *testing.T) {
			snapshot, err := flow.CreateSnapshot(ctx, &dto.CreateSnapshotRequest{
				SnapshotID:  "snap-vip-onboarding",
				SegmentName: "vip",
				JourneyID:   utils.ToPtr("j-onboarding"),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, int64(1), snapshot.MemberCount)

			members, err := flow.GetMembers(ctx, "snap-vip-onboarding")
			require.NoError(t, err)
			assert.Equal(t, []int64{onJourney.ID}, members.ProfileIDs)
		})

		t.Run("RecreateDoesNotReevaluate", func(t *testing.T) {
			// A new member joins the segment after the freeze
			seed("ext-late", []string{"vip"}, nil, nil)

			snapshot, err := flow.CreateSnapshot(ctx, &dto.CreateSnapshotRequest{
				SnapshotID:  "snap-vip",
				SegmentName: "vip",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, int64(3), snapshot.MemberCount)
		})

		t.Run("ListBySegment", func(t *testing.T) {
			snapshots, err := flow.ListSnapshots(ctx, "vip", 10, 0)
			require.NoError(t, err)
			assert.Len(t, snapshots, 3)

			all, err := flow.ListSnapshots(ctx, "", 10, 0)
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})

		t.Run("UnknownSnapshot", func(t *testing.T) {
			_, err := flow.GetSnapshot(ctx, "no-such-snapshot")
			assert.True(t, businessflow.IsSnapshotNotFound(err))

			_, err = flow.GetMembers(ctx, "no-such-snapshot")
			assert.True(t, businessflow.IsSnapshotNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
