package federation

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/inmemory"
	"github.com/Ramsey-B/fern/pkg/audit"
	"github.com/Ramsey-B/fern/pkg/clock"
	"github.com/Ramsey-B/fern/pkg/differ"
	"github.com/Ramsey-B/fern/pkg/idgen"
	"github.com/Ramsey-B/fern/pkg/ingestion"
	"github.com/Ramsey-B/fern/pkg/license"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/retraction"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	service      *Service
	integrations *inmemory.IntegrationStore
	jobs         *inmemory.JobStore
	apis         *inmemory.ApiStore
	agent        *inmemory.Agent
	audits       *inmemory.AuditStore
}

func newFixture(t *testing.T, licensedOrgs []string) *fixture {
	t.Helper()

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	clk := clock.Fixed(testNow)
	ids := idgen.New()

	f := &fixture{
		integrations: inmemory.NewIntegrationStore(),
		jobs:         inmemory.NewJobStore(),
		apis:         inmemory.NewApiStore(),
		agent:        inmemory.NewAgent(),
		audits:       inmemory.NewAuditStore(),
	}

	auditor := audit.NewService(f.audits, clk, ids, logger)
	notifier := inmemory.NewNotifier()
	indexer := inmemory.NewIndexer()

	pipeline := ingestion.NewPipeline(ingestion.PipelineParams{
		Apis:        f.apis,
		Plans:       inmemory.NewPlanStore(),
		Pages:       inmemory.NewPageStore(),
		Memberships: inmemory.NewMembershipStore(),
		Audits:      auditor,
		Indexer:     indexer,
		Notifier:    notifier,
		Settings:    ingestion.StaticSettings{Mode: models.PrimaryOwnerModeUser},
		Clock:       clk,
		Ids:         ids,
		WorkerCount: 1,
		Logger:      logger,
	})

	engine := retraction.NewEngine(retraction.EngineParams{
		Apis:          f.apis,
		Plans:         inmemory.NewPlanStore(),
		Pages:         inmemory.NewPageStore(),
		Subscriptions: inmemory.NewSubscriptionStore(),
		ApiKeys:       inmemory.NewApiKeyStore(),
		Metadata:      inmemory.NewMetadataStore(),
		Memberships:   inmemory.NewMembershipStore(),
		Audits:        auditor,
		Indexer:       indexer,
		Notifier:      notifier,
		Clock:         clk,
		Logger:        logger,
	})

	f.service = NewService(ServiceParams{
		Integrations: f.integrations,
		Jobs:         f.jobs,
		Apis:         f.apis,
		Agent:        f.agent,
		License:      license.NewStaticManager(licensedOrgs),
		Differ:       differ.New(f.apis, logger),
		Pipeline:     pipeline,
		Retraction:   engine,
		Clock:        clk,
		Ids:          ids,
		Logger:       logger,
	})

	return f
}

func (f *fixture) seedIntegration(id string) {
	f.integrations.Seed(models.Integration{
		ID:            id,
		EnvironmentID: "environment-id",
		Name:          "aws integration",
		Provider:      "aws-api-gateway",
	})
}

func testInfo() models.AuditInfo {
	return models.AuditInfo{
		OrganizationID: "org-id",
		EnvironmentID:  "environment-id",
		UserID:         "user-id",
	}
}

func TestLicenseGate(t *testing.T) {
	// "org-id" is not in the licensed set
	f := newFixture(t, []string{"other-org"})
	f.seedIntegration("integration-id")
	f.agent.Apis = []models.ExternalApi{{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"}}
	ctx := context.Background()

	t.Run("discover", func(t *testing.T) {
		_, err := f.service.Discover(ctx, "integration-id", testInfo())
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
	})

	t.Run("start ingest produces no job", func(t *testing.T) {
		_, err := f.service.StartIngest(ctx, "integration-id", testInfo())
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
		assert.Equal(t, 0, f.jobs.Len())
	})

	t.Run("ingest writes nothing", func(t *testing.T) {
		_, err := f.service.Ingest(ctx, IngestInput{
			JobID: "job-1",
			Apis:  []models.ExternalApi{{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"}},
		}, testInfo())
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
		assert.Empty(t, f.apis.All())
	})

	t.Run("delete ingested apis", func(t *testing.T) {
		_, err := f.service.DeleteIngestedApis(ctx, "integration-id", testInfo())
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
	})

	assert.Empty(t, f.audits.All())
}

func TestDiscover(t *testing.T) {
	ctx := context.Background()

	t.Run("previews new and existing assets", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedIntegration("integration-id")
		f.agent.Apis = []models.ExternalApi{
			{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"},
			{UniqueID: "uid-2", Name: "billing", Version: "1.0.0"},
		}
		require.NoError(t, f.apis.Create(ctx, models.FederatedApi{
			ID:            "environment-idintegration-iduid-1",
			IntegrationID: "integration-id",
		}))

		discovered, err := f.service.Discover(ctx, "integration-id", testInfo())

		require.NoError(t, err)
		require.Len(t, discovered, 2)
		assert.Equal(t, models.DiscoveredApiStateUpdate, discovered[0].State)
		assert.Equal(t, models.DiscoveredApiStateNew, discovered[1].State)

		// discovery is a preview only
		assert.Len(t, f.apis.All(), 1)
		assert.Equal(t, 0, f.jobs.Len())
	})

	t.Run("unknown integration", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.service.Discover(ctx, "missing", testInfo())

		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestStartIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending job sized by agent count", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedIntegration("integration-id")
		f.agent.Apis = []models.ExternalApi{
			{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"},
			{UniqueID: "uid-2", Name: "billing", Version: "1.0.0"},
		}

		result, err := f.service.StartIngest(ctx, "integration-id", testInfo())

		require.NoError(t, err)
		assert.Equal(t, models.JobStatusPending, result.Status)
		assert.Equal(t, int64(2), result.UpperLimit)
		require.NotEmpty(t, result.JobID)

		job, err := f.jobs.Get(ctx, result.JobID)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, "integration-id", job.SourceID)
		assert.Equal(t, "environment-id", job.EnvironmentID)
		assert.Equal(t, "user-id", job.InitiatorID)
		assert.Equal(t, int64(2), job.UpperLimit)
	})

	t.Run("no discoverable apis completes without a job", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedIntegration("integration-id")

		result, err := f.service.StartIngest(ctx, "integration-id", testInfo())

		require.NoError(t, err)
		assert.Equal(t, models.JobStatusSuccess, result.Status)
		assert.Empty(t, result.JobID)
		assert.Equal(t, 0, f.jobs.Len())
	})

	t.Run("unknown integration", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.service.StartIngest(ctx, "missing", testInfo())

		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("applies batch and completes job", func(t *testing.T) {
		f := newFixture(t, nil)
		require.NoError(t, f.jobs.Create(ctx, models.IngestionJob{
			ID:            "job-1",
			SourceID:      "integration-id",
			EnvironmentID: "environment-id",
			InitiatorID:   "user-id",
			Status:        models.JobStatusPending,
			UpperLimit:    2,
		}))

		result, err := f.service.Ingest(ctx, IngestInput{
			JobID: "job-1",
			Apis: []models.ExternalApi{
				{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"},
				{UniqueID: "uid-2", Name: "billing", Version: "1.0.0"},
			},
			Done: true,
		}, testInfo())

		require.NoError(t, err)
		assert.Equal(t, ingestion.Result{Created: 2}, result)
		assert.Len(t, f.apis.All(), 2)

		job, err := f.jobs.Get(ctx, "job-1")
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, models.JobStatusSuccess, job.Status)
	})

	t.Run("intermediate batch leaves job pending", func(t *testing.T) {
		f := newFixture(t, nil)
		require.NoError(t, f.jobs.Create(ctx, models.IngestionJob{
			ID:            "job-1",
			SourceID:      "integration-id",
			EnvironmentID: "environment-id",
			Status:        models.JobStatusPending,
		}))

		_, err := f.service.Ingest(ctx, IngestInput{
			JobID: "job-1",
			Apis:  []models.ExternalApi{{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"}},
		}, testInfo())

		require.NoError(t, err)
		job, err := f.jobs.Get(ctx, "job-1")
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, models.JobStatusPending, job.Status)
	})

	t.Run("unknown job is a silent no-op", func(t *testing.T) {
		f := newFixture(t, nil)

		result, err := f.service.Ingest(ctx, IngestInput{
			JobID: "missing",
			Apis:  []models.ExternalApi{{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"}},
		}, testInfo())

		require.NoError(t, err)
		assert.Equal(t, ingestion.Result{}, result)
		assert.Empty(t, f.apis.All())
	})

	t.Run("empty batch", func(t *testing.T) {
		f := newFixture(t, nil)
		require.NoError(t, f.jobs.Create(ctx, models.IngestionJob{
			ID:     "job-1",
			Status: models.JobStatusPending,
		}))

		result, err := f.service.Ingest(ctx, IngestInput{JobID: "job-1", Done: true}, testInfo())

		require.NoError(t, err)
		assert.Equal(t, ingestion.Result{}, result)
	})
}

func TestDeleteIngestedApis(t *testing.T) {
	ctx := context.Background()

	t.Run("retracts the integration's apis", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedIntegration("integration-id")
		require.NoError(t, f.apis.Create(ctx, models.FederatedApi{
			ID:             "api-1",
			IntegrationID:  "integration-id",
			LifecycleState: models.ApiLifecycleUnpublished,
		}))
		require.NoError(t, f.apis.Create(ctx, models.FederatedApi{
			ID:             "api-2",
			IntegrationID:  "integration-id",
			LifecycleState: models.ApiLifecyclePublished,
		}))

		result, err := f.service.DeleteIngestedApis(ctx, "integration-id", testInfo())

		require.NoError(t, err)
		assert.Equal(t, retraction.Result{Deleted: 1, Skipped: 1}, result)
	})

	t.Run("unknown integration", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.service.DeleteIngestedApis(ctx, "missing", testInfo())

		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestDeleteIntegration(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes when no apis remain", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedIntegration("integration-id")

		require.NoError(t, f.service.DeleteIntegration(ctx, "integration-id"))
		assert.False(t, f.integrations.Exists("integration-id"))
	})

	t.Run("conflicts while federated apis remain", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedIntegration("integration-id")
		require.NoError(t, f.apis.Create(ctx, models.FederatedApi{
			ID:            "api-1",
			IntegrationID: "integration-id",
		}))

		err := f.service.DeleteIntegration(ctx, "integration-id")

		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
		assert.True(t, f.integrations.Exists("integration-id"))
	})

	t.Run("unknown integration", func(t *testing.T) {
		f := newFixture(t, nil)

		err := f.service.DeleteIntegration(ctx, "missing")

		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}
