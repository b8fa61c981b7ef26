package businessflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavehjm/Simorgh/app/dto"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	testingutil "github.com/kavehjm/Simorgh/testing"
	"github.com/kavehjm/Simorgh/utils"
)

func newCatalogFlow(testDB *testingutil.TestDB) (businessflow.CatalogFlow, repository.EmbeddingJobRepository) {
	jobRepo := repository.NewEmbeddingJobRepository(testDB.DB)
	flow := businessflow.NewCatalogFlow(
		repository.NewProfileRepository(testDB.DB),
		repository.NewMarketingEventRepository(testDB.DB),
		jobRepo,
		testDB.DB,
	)
	return flow, jobRepo
}

func TestCatalogFlowProfiles(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, _ := newCatalogFlow(testDB)
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		ctx := repository.WithTenant(testingutil.CreateTestContext(), tenant.ID)

		t.Run("UpsertCreatesThenReplaces", func(t *testing.T) {
			created, err := flow.UpsertProfile(ctx, &dto.UpsertProfileRequest{
				ExternalKey:  "crm-1001",
				PrimaryEmail: utils.ToPtr("ada@example.com"),
				FirstName:    utils.ToPtr("Ada"),
				Segments:     []string{"vip", "beta"},
				Consents:     map[string]bool{"email": true},
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, []string{"vip", "beta"}, created.Segments)

			// The second upsert is the whole desired state; fields absent
			// from it are cleared, not merged
			replaced, err := flow.UpsertProfile(ctx, &dto.UpsertProfileRequest{
				ExternalKey:  "crm-1001",
				PrimaryPhone: utils.ToPtr("+14155550101"),
				Segments:     []string{"vip"},
				Consents:     map[string]bool{"sms": true},
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, created.ID, replaced.ID)
			assert.Nil(t, replaced.PrimaryEmail)
			assert.Nil(t, replaced.FirstName)
			assert.Equal(t, []string{"vip"}, replaced.Segments)
			assert.Equal(t, map[string]bool{"sms": true}, replaced.Consents)
		})

		t.Run("GetUnknownProfile", func(t *testing.T) {
			_, err := flow.GetProfile(ctx, "no-such-key")
			assert.True(t, businessflow.IsProfileNotFound(err))
		})

		t.Run("AbsentConsentReadsAsDenied", func(t *testing.T) {
			profile, err := flow.GetProfile(ctx, "crm-1001")
			require.NoError(t, err)

			allowed, err := flow.AllowedChannel(ctx, profile.ID, models.ChannelSMS)
			require.NoError(t, err)
			assert.True(t, allowed)

			allowed, err = flow.AllowedChannel(ctx, profile.ID, models.ChannelEmail)
			require.NoError(t, err)
			assert.False(t, allowed)
		})

		t.Run("SegmentContactPointsSkipNonReachable", func(t *testing.T) {
			// Consenting with an address, consenting without one, not
			// consenting, and consenting with a garbled address
			_, err := flow.UpsertProfile(ctx, &dto.UpsertProfileRequest{
				ExternalKey:  "crm-2001",
				PrimaryEmail: utils.ToPtr("reachable@example.com"),
				Segments:     []string{"newsletter"},
				Consents:     map[string]bool{"email": true},
			}, metadata)
			require.NoError(t, err)
			_, err = flow.UpsertProfile(ctx, &dto.UpsertProfileRequest{
				ExternalKey: "crm-2002",
				Segments:    []string{"newsletter"},
				Consents:    map[string]bool{"email": true},
			}, metadata)
			require.NoError(t, err)
			_, err = flow.UpsertProfile(ctx, &dto.UpsertProfileRequest{
				ExternalKey:  "crm-2003",
				PrimaryEmail: utils.ToPtr("refused@example.com"),
				Segments:     []string{"newsletter"},
			}, metadata)
			require.NoError(t, err)
			_, err = flow.UpsertProfile(ctx, &dto.UpsertProfileRequest{
				ExternalKey:  "crm-2004",
				PrimaryEmail: utils.ToPtr("not-an-address"),
				Segments:     []string{"newsletter"},
				Consents:     map[string]bool{"email": true},
			}, metadata)
			require.NoError(t, err)

			contacts, err := flow.SegmentContactPoints(ctx, "newsletter", models.ChannelEmail)
			require.NoError(t, err)
			require.Len(t, contacts, 1)
			assert.Equal(t, "crm-2001", contacts[0].ExternalKey)
			assert.Equal(t, "reachable@example.com", contacts[0].Address)
		})

		t.Run("UpsertRequiresBinding", func(t *testing.T) {
			_, err := flow.UpsertProfile(testingutil.CreateTestContext(), &dto.UpsertProfileRequest{
				ExternalKey: "crm-unbound",
			}, metadata)
			assert.True(t, businessflow.IsTenantContextMissing(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCatalogFlowMarketingEvents(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, jobRepo := newCatalogFlow(testDB)
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		ctx := repository.WithTenant(testingutil.CreateTestContext(), tenant.ID)

		t.Run("CreateComputesAddressAndEnqueuesJob", func(t *testing.T) {
			event, err := flow.CreateMarketingEvent(ctx, &dto.CreateMarketingEventRequest{
				Name:      "summer-sale",
				EventType: "promo",
				Channel:   "email",
				Subject:   utils.ToPtr("Summer sale"),
				Body:      utils.ToPtr("Everything is cheaper."),
			}, metadata)
			require.NoError(t, err)
			assert.Len(t, event.ID, 64)
			assert.Equal(t, string(models.EmbeddingStatusPending), event.EmbeddingStatus)

			jobs, err := jobRepo.ByFilter(ctx, models.EmbeddingJobFilter{EventID: &event.ID}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, jobs, 1)
			assert.Equal(t, models.EmbeddingJobStatusPending, jobs[0].Status)
		})

		t.Run("CreateWithoutContentSkipsJob", func(t *testing.T) {
			event, err := flow.CreateMarketingEvent(ctx, &dto.CreateMarketingEventRequest{
				Name:      "bare-touchpoint",
				EventType: "notification",
				Channel:   "push",
			}, metadata)
			require.NoError(t, err)

			jobs, err := jobRepo.ByFilter(ctx, models.EmbeddingJobFilter{EventID: &event.ID}, "", 0, 0)
			require.NoError(t, err)
			assert.Empty(t, jobs)
		})

		t.Run("ContentEditKeepsIdentityAndRequeues", func(t *testing.T) {
			event, err := flow.CreateMarketingEvent(ctx, &dto.CreateMarketingEventRequest{
				Name:      "winter-sale",
				EventType: "promo",
				Channel:   "email",
				Subject:   utils.ToPtr("Winter sale"),
				Body:      utils.ToPtr("First draft."),
			}, metadata)
			require.NoError(t, err)

			updated, err := flow.UpdateMarketingEventContent(ctx, event.ID, &dto.UpdateMarketingEventContentRequest{
				Body: utils.ToPtr("Second draft."),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, event.ID, updated.ID)
			require.NotNil(t, updated.Body)
			assert.Equal(t, "Second draft.", *updated.Body)
			assert.Equal(t, string(models.EmbeddingStatusPending), updated.EmbeddingStatus)

			// One job from creation, one from the edit
			jobs, err := jobRepo.ByFilter(ctx, models.EmbeddingJobFilter{EventID: &event.ID}, "", 0, 0)
			require.NoError(t, err)
			assert.Len(t, jobs, 2)
		})

		t.Run("PartialContentEditKeepsOtherField", func(t *testing.T) {
			event, err := flow.CreateMarketingEvent(ctx, &dto.CreateMarketingEventRequest{
				Name:      "autumn-sale",
				EventType: "promo",
				Channel:   "email",
				Subject:   utils.ToPtr("Autumn sale"),
				Body:      utils.ToPtr("Leaves fall, prices too."),
			}, metadata)
			require.NoError(t, err)

			updated, err := flow.UpdateMarketingEventContent(ctx, event.ID, &dto.UpdateMarketingEventContentRequest{
				Subject: utils.ToPtr("Autumn clearance"),
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, updated.Subject)
			assert.Equal(t, "Autumn clearance", *updated.Subject)
			require.NotNil(t, updated.Body)
			assert.Equal(t, "Leaves fall, prices too.", *updated.Body)
		})

		t.Run("QueueViewFiltersByStatus", func(t *testing.T) {
			jobs, err := flow.ListEmbeddingJobs(ctx, &dto.ListEmbeddingJobsRequest{Status: "pending"})
			require.NoError(t, err)
			assert.NotEmpty(t, jobs)
			for _, j := range jobs {
				assert.Equal(t, "pending", j.Status)
			}

			jobs, err = flow.ListEmbeddingJobs(ctx, &dto.ListEmbeddingJobsRequest{Status: "failed"})
			require.NoError(t, err)
			assert.Empty(t, jobs)
		})

		t.Run("EmptyContentEditIsRejected", func(t *testing.T) {
			event, err := fixtures.CreateTestMarketingEvent(tenant.ID)
			require.NoError(t, err)

			_, err = flow.UpdateMarketingEventContent(ctx, event.ID, &dto.UpdateMarketingEventContentRequest{}, metadata)
			assert.True(t, businessflow.IsContentUpdateEmpty(err))
		})

		t.Run("GetUnknownEvent", func(t *testing.T) {
			_, err := flow.GetMarketingEvent(ctx, "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
			assert.True(t, businessflow.IsMarketingEventNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
