package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	testingutil "github.com/kavehjm/Simorgh/testing"
)

func TestTenantIsolation(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewProfileRepository(testDB.DB)

		tenantA, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		tenantB, err := fixtures.CreateTestTenant()
		require.NoError(t, err)

		profileA, err := fixtures.CreateTestProfile(tenantA.ID, "vip")
		require.NoError(t, err)
		_, err = fixtures.CreateTestProfile(tenantB.ID, "vip")
		require.NoError(t, err)

		ctxA := repository.WithTenant(testingutil.CreateTestContext(), tenantA.ID)
		ctxB := repository.WithTenant(testingutil.CreateTestContext(), tenantB.ID)
		unbound := testingutil.CreateTestContext()

		t.Run("UnboundReadsReturnEmpty", func(t *testing.T) {
			profiles, err := repo.ByFilter(unbound, models.ProfileFilter{}, "", 0, 0)
			require.NoError(t, err)
			assert.Empty(t, profiles)

			profile, err := repo.ByID(unbound, profileA.ID)
			require.NoError(t, err)
			assert.Nil(t, profile)

			count, err := repo.Count(unbound, models.ProfileFilter{})
			require.NoError(t, err)
			assert.Zero(t, count)
		})

		t.Run("UnboundWritesFailClosed", func(t *testing.T) {
			profile := &models.Profile{
				TenantID:        tenantA.ID,
				ExternalKey:     "smuggled",
				EventStatistics: []byte("{}"),
			}
			err := repo.Save(unbound, profile)
			assert.ErrorIs(t, err, repository.ErrIsolationViolation)
		})

		t.Run("BoundReadsSeeOwnTenantOnly", func(t *testing.T) {
			profilesA, err := repo.ByFilter(ctxA, models.ProfileFilter{}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, profilesA, 1)
			assert.Equal(t, profileA.ExternalKey, profilesA[0].ExternalKey)

			profilesB, err := repo.ByFilter(ctxB, models.ProfileFilter{}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, profilesB, 1)
			assert.NotEqual(t, profileA.ExternalKey, profilesB[0].ExternalKey)
		})

		t.Run("ForeignTenantLookupIsInvisible", func(t *testing.T) {
			profile, err := repo.ByID(ctxB, profileA.ID)
			require.NoError(t, err)
			assert.Nil(t, profile)

			profile, err = repo.ByExternalKey(ctxB, profileA.ExternalKey)
			require.NoError(t, err)
			assert.Nil(t, profile)
		})

		t.Run("SameExternalKeyAcrossTenants", func(t *testing.T) {
			key := "shared-key"

			pA := &models.Profile{TenantID: tenantA.ID, ExternalKey: key, EventStatistics: []byte("{}")}
			require.NoError(t, repo.Save(ctxA, pA))
			pB := &models.Profile{TenantID: tenantB.ID, ExternalKey: key, EventStatistics: []byte("{}")}
			require.NoError(t, repo.Save(ctxB, pB))

			got, err := repo.ByExternalKey(ctxA, key)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tenantA.ID, got.TenantID)
		})

		return nil
	})
	require.NoError(t, err)
}
