package businessflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavehjm/Simorgh/app/services"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	testingutil "github.com/kavehjm/Simorgh/testing"
)

// stubEmbeddingService returns a canned vector or error without calling out
type stubEmbeddingService struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func fixedVector() []float32 {
	v := make([]float32, services.EmbeddingVectorDimensions)
	for i := range v {
		v[i] = 0.25
	}
	return v
}

func TestEnrichmentFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		jobRepo := repository.NewEmbeddingJobRepository(testDB.DB)
		eventRepo := repository.NewMarketingEventRepository(testDB.DB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		ctx := repository.WithTenant(testingutil.CreateTestContext(), tenant.ID)

		t.Run("ProcessCompletesJobAndStoresVector", func(t *testing.T) {
			event, err := fixtures.CreateTestMarketingEvent(tenant.ID)
			require.NoError(t, err)
			job, err := fixtures.CreateTestEmbeddingJob(tenant.ID, event.ID)
			require.NoError(t, err)

			stub := &stubEmbeddingService{vector: fixedVector()}
			flow := businessflow.NewEnrichmentFlow(jobRepo, eventRepo, stub, 10*time.Minute)

			// The worker loop passes an unbound context; claiming spans
			// tenants and processing binds the claimed job's tenant
			result, err := flow.ProcessNext(testingutil.CreateTestContext(), "worker-1")
			require.NoError(t, err)
			assert.Equal(t, businessflow.EnrichmentCompleted, result)
			assert.Equal(t, 1, stub.calls)

			done, err := jobRepo.ByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, models.EmbeddingJobStatusCompleted, done.Status)

			enriched, err := eventRepo.ByID(ctx, event.ID)
			require.NoError(t, err)
			assert.Equal(t, models.EmbeddingStatusCompleted, enriched.EmbeddingStatus)
			assert.NotNil(t, enriched.Embedding)
		})

		t.Run("EmptyQueueReturnsIdle", func(t *testing.T) {
			stub := &stubEmbeddingService{vector: fixedVector()}
			flow := businessflow.NewEnrichmentFlow(jobRepo, eventRepo, stub, 10*time.Minute)

			result, err := flow.ProcessNext(testingutil.CreateTestContext(), "worker-1")
			require.NoError(t, err)
			assert.Equal(t, businessflow.EnrichmentIdle, result)
			assert.Zero(t, stub.calls)
		})

		t.Run("ProviderFailureRetriesThenMarksEventFailed", func(t *testing.T) {
			event, err := fixtures.CreateTestMarketingEvent(tenant.ID)
			require.NoError(t, err)
			job, err := fixtures.CreateTestEmbeddingJob(tenant.ID, event.ID)
			require.NoError(t, err)

			stub := &stubEmbeddingService{err: errors.New("provider unavailable")}
			flow := businessflow.NewEnrichmentFlow(jobRepo, eventRepo, stub, 10*time.Minute)

			// Every failed attempt reports as failed, never completed
			for attempt := 1; attempt <= models.EmbeddingJobMaxAttempts; attempt++ {
				result, err := flow.ProcessNext(testingutil.CreateTestContext(), "worker-1")
				require.NoError(t, err)
				assert.Equal(t, businessflow.EnrichmentFailed, result)
			}

			failed, err := jobRepo.ByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, models.EmbeddingJobStatusFailed, failed.Status)
			assert.Equal(t, models.EmbeddingJobMaxAttempts, failed.Attempts)

			marked, err := eventRepo.ByID(ctx, event.ID)
			require.NoError(t, err)
			assert.Equal(t, models.EmbeddingStatusFailed, marked.EmbeddingStatus)
			assert.Nil(t, marked.Embedding)
		})

		return nil
	})
	require.NoError(t, err)
}
