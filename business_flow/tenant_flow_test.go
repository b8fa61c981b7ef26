package businessflow_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavehjm/Simorgh/app/dto"
	"github.com/kavehjm/Simorgh/app/services"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	testingutil "github.com/kavehjm/Simorgh/testing"
)

const testTokenSecret = "test-secret-key-with-enough-length-for-hs256"

func mustParseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func newTenantFlow(t *testing.T, testDB *testingutil.TestDB) businessflow.TenantFlow {
	tokenService, err := services.NewTokenService(time.Hour, "simorgh", "simorgh-api", testTokenSecret)
	require.NoError(t, err)
	return businessflow.NewTenantFlow(
		repository.NewTenantRepository(testDB.DB),
		tokenService,
		nil,
		testDB.DB,
	)
}

func TestTenantFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newTenantFlow(t, testDB)
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")
		ctx := testingutil.CreateTestContext()

		t.Run("CreateReturnsSecretOnce", func(t *testing.T) {
			resp, err := flow.CreateTenant(ctx, &dto.CreateTenantRequest{Name: "acme-workspace"}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "active", resp.Tenant.Status)
			assert.Len(t, resp.APISecret, 64)

			// The stored record carries only the hash
			tenant, err := flow.GetTenant(ctx, mustParseUUID(t, resp.Tenant.ID))
			require.NoError(t, err)
			assert.Equal(t, "acme-workspace", tenant.Name)
		})

		t.Run("NameMustBeUnique", func(t *testing.T) {
			_, err := flow.CreateTenant(ctx, &dto.CreateTenantRequest{Name: "acme-workspace"}, metadata)
			assert.True(t, businessflow.IsTenantNameTaken(err))
		})

		t.Run("TokenExchange", func(t *testing.T) {
			resp, err := flow.CreateTenant(ctx, &dto.CreateTenantRequest{Name: "token-workspace"}, metadata)
			require.NoError(t, err)

			token, err := flow.IssueToken(ctx, &dto.TenantTokenRequest{
				TenantID:  resp.Tenant.ID,
				APISecret: resp.APISecret,
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "Bearer", token.TokenType)
			assert.NotEmpty(t, token.AccessToken)

			_, err = flow.IssueToken(ctx, &dto.TenantTokenRequest{
				TenantID:  resp.Tenant.ID,
				APISecret: "wrong-secret",
			}, metadata)
			assert.True(t, businessflow.IsIncorrectAPISecret(err))
		})

		t.Run("SuspensionBlocksTokensAndBinding", func(t *testing.T) {
			resp, err := flow.CreateTenant(ctx, &dto.CreateTenantRequest{Name: "suspended-workspace"}, metadata)
			require.NoError(t, err)
			tenantID := mustParseUUID(t, resp.Tenant.ID)

			bound, err := flow.Bind(ctx, tenantID)
			require.NoError(t, err)
			got, ok := repository.TenantFrom(bound)
			require.True(t, ok)
			assert.Equal(t, tenantID, got)

			updated, err := flow.UpdateStatus(ctx, tenantID, models.TenantStatusSuspended, metadata)
			require.NoError(t, err)
			assert.Equal(t, "suspended", updated.Status)

			_, err = flow.IssueToken(ctx, &dto.TenantTokenRequest{
				TenantID:  resp.Tenant.ID,
				APISecret: resp.APISecret,
			}, metadata)
			assert.True(t, businessflow.IsTenantInactive(err))

			_, err = flow.Bind(ctx, tenantID)
			assert.True(t, businessflow.IsTenantInactive(err))

			// Suspension is reversible
			restored, err := flow.UpdateStatus(ctx, tenantID, models.TenantStatusActive, metadata)
			require.NoError(t, err)
			assert.Equal(t, "active", restored.Status)
		})

		t.Run("ArchivalIsTerminal", func(t *testing.T) {
			resp, err := flow.CreateTenant(ctx, &dto.CreateTenantRequest{Name: "archived-workspace"}, metadata)
			require.NoError(t, err)
			tenantID := mustParseUUID(t, resp.Tenant.ID)

			archived, err := flow.UpdateStatus(ctx, tenantID, models.TenantStatusArchived, metadata)
			require.NoError(t, err)
			assert.Equal(t, "archived", archived.Status)
			assert.NotNil(t, archived.ArchivedAt)

			_, err = flow.UpdateStatus(ctx, tenantID, models.TenantStatusActive, metadata)
			assert.True(t, businessflow.IsInvalidTenantStatus(err))

			_, err = flow.Bind(ctx, tenantID)
			assert.True(t, businessflow.IsTenantInactive(err))
		})

		t.Run("UnknownTenant", func(t *testing.T) {
			_, err := flow.IssueToken(ctx, &dto.TenantTokenRequest{
				TenantID:  "8f9f7d3a-0a69-4d14-bb49-63f7a78dce7f",
				APISecret: "anything",
			}, metadata)
			assert.True(t, businessflow.IsTenantNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
