package businessflow_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kavehjm/Simorgh/app/dto"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	testingutil "github.com/kavehjm/Simorgh/testing"
	"github.com/kavehjm/Simorgh/utils"
)

func newLedgerFlow(testDB *testingutil.TestDB) businessflow.LedgerFlow {
	return businessflow.NewLedgerFlow(
		repository.NewBehavioralEventRepository(testDB.DB),
		repository.NewDeliveryAttemptRepository(testDB.DB),
		repository.NewOutcomeRepository(testDB.DB),
		repository.NewProfileRepository(testDB.DB),
		repository.NewMarketingEventRepository(testDB.DB),
	)
}

func TestLedgerFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newLedgerFlow(testDB)
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		profile, err := fixtures.CreateTestProfile(tenant.ID)
		require.NoError(t, err)
		event, err := fixtures.CreateTestMarketingEvent(tenant.ID)
		require.NoError(t, err)

		ctx := repository.WithTenant(testingutil.CreateTestContext(), tenant.ID)

		t.Run("BehavioralAppendRequiresProfile", func(t *testing.T) {
			_, err := flow.AppendBehavioralEvent(ctx, &dto.AppendBehavioralEventRequest{
				ProfileID: 999999,
				EventName: "page_view",
			}, metadata)
			assert.True(t, businessflow.IsProfileNotFound(err))

			appended, err := flow.AppendBehavioralEvent(ctx, &dto.AppendBehavioralEventRequest{
				ProfileID: profile.ID,
				EventName: "page_view",
			}, metadata)
			require.NoError(t, err)
			assert.NotZero(t, appended.ID)
		})

		t.Run("DeliveryRequiresConsent", func(t *testing.T) {
			// Fixture profiles consent to email and sms only
			_, err := flow.RecordDelivery(ctx, &dto.RecordDeliveryRequest{
				ProfileID: profile.ID,
				EventID:   event.ID,
				Channel:   "push",
			}, metadata)
			assert.True(t, businessflow.IsChannelNotConsented(err))

			pending, err := flow.RecordDelivery(ctx, &dto.RecordDeliveryRequest{
				ProfileID: profile.ID,
				EventID:   event.ID,
				Channel:   "email",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "pending", pending.Status)
		})

		t.Run("DeliveryRequiresContactPoint", func(t *testing.T) {
			unreachable, err := fixtures.CreateTestProfile(tenant.ID)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.Profile{}).
				Where("id = ?", unreachable.ID).
				Update("primary_email", nil).Error)

			_, err = flow.RecordDelivery(ctx, &dto.RecordDeliveryRequest{
				ProfileID: unreachable.ID,
				EventID:   event.ID,
				Channel:   "email",
			}, metadata)
			assert.True(t, businessflow.IsNoContactPoint(err))
		})

		t.Run("MalformedAddressIsLedgeredAsFailed", func(t *testing.T) {
			// A bad address is not a rejected request: the attempt lands in
			// the ledger as a failed row with the reason attached
			garbled, err := fixtures.CreateTestProfile(tenant.ID)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.Profile{}).
				Where("id = ?", garbled.ID).
				Update("primary_email", "not-an-address").Error)

			attempt, err := flow.RecordDelivery(ctx, &dto.RecordDeliveryRequest{
				ProfileID: garbled.ID,
				EventID:   event.ID,
				Channel:   "email",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "failed", attempt.Status)
			require.NotNil(t, attempt.FailureReason)
			assert.Equal(t, businessflow.ErrMalformedContactPoint.Error(), *attempt.FailureReason)

			// The failed row is terminal and cannot be superseded
			_, err = flow.RecordDeliveryResult(ctx, &dto.RecordDeliveryResultRequest{
				Supersedes: attempt.ID,
				Status:     "sent",
			}, metadata)
			assert.True(t, businessflow.IsSupersededNotPending(err))
		})

		t.Run("ResultMustSupersedePendingRow", func(t *testing.T) {
			pending, err := flow.RecordDelivery(ctx, &dto.RecordDeliveryRequest{
				ProfileID: profile.ID,
				EventID:   event.ID,
				Channel:   "email",
			}, metadata)
			require.NoError(t, err)

			sent, err := flow.RecordDeliveryResult(ctx, &dto.RecordDeliveryResultRequest{
				Supersedes:       pending.ID,
				Status:           "sent",
				ProviderResponse: []byte(`{"message_id":"m-1"}`),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "sent", sent.Status)
			require.NotNil(t, sent.Supersedes)
			assert.Equal(t, pending.ID, *sent.Supersedes)

			// The result row is terminal; it cannot be superseded again
			_, err = flow.RecordDeliveryResult(ctx, &dto.RecordDeliveryResultRequest{
				Supersedes: sent.ID,
				Status:     "failed",
			}, metadata)
			assert.True(t, businessflow.IsSupersededNotPending(err))

			_, err = flow.RecordDeliveryResult(ctx, &dto.RecordDeliveryResultRequest{
				Supersedes: 999999,
				Status:     "sent",
			}, metadata)
			assert.True(t, businessflow.IsDeliveryAttemptNotFound(err))
		})

		t.Run("OutcomeRequiresDelivery", func(t *testing.T) {
			_, err := flow.RecordOutcome(ctx, &dto.RecordOutcomeRequest{
				DeliveryAttemptID: 999999,
				ProfileID:         profile.ID,
				OutcomeType:       "open",
			}, metadata)
			assert.True(t, businessflow.IsDeliveryAttemptNotFound(err))

			deliveries, err := flow.ListDeliveries(ctx, &dto.LedgerWindowRequest{})
			require.NoError(t, err)
			require.NotEmpty(t, deliveries)

			outcome, err := flow.RecordOutcome(ctx, &dto.RecordOutcomeRequest{
				DeliveryAttemptID: deliveries[0].ID,
				ProfileID:         profile.ID,
				OutcomeType:       "open",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "open", outcome.OutcomeType)
		})

		t.Run("WindowValidation", func(t *testing.T) {
			from := utils.UTCNow()
			to := from.Add(-time.Hour)
			_, err := flow.ListDeliveries(ctx, &dto.LedgerWindowRequest{From: &from, To: &to})
			assert.True(t, businessflow.IsStartDateAfterEndDate(err))

			_, err = flow.ListBehavioralEvents(ctx, &dto.LedgerWindowRequest{Page: -1})
			assert.True(t, businessflow.IsInvalidPage(err))

			_, err = flow.ListOutcomes(ctx, &dto.LedgerWindowRequest{PageSize: 5000})
			assert.True(t, businessflow.IsInvalidPageSize(err))
		})

		t.Run("ExportIsReadableWorkbook", func(t *testing.T) {
			report, err := flow.ExportDeliveryReport(ctx, &dto.LedgerWindowRequest{})
			require.NoError(t, err)
			require.NotEmpty(t, report)

			workbook, err := excelize.OpenReader(bytes.NewReader(report))
			require.NoError(t, err)
			defer func() { _ = workbook.Close() }()

			rows, err := workbook.GetRows("Deliveries")
			require.NoError(t, err)
			// Header plus one row per ledger entry
			require.NotEmpty(t, rows)
			assert.Equal(t, "ID", rows[0][0])
			assert.Greater(t, len(rows), 1)
		})

		return nil
	})
	require.NoError(t, err)
}
