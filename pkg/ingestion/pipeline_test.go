package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/inmemory"
	"github.com/Ramsey-B/fern/pkg/audit"
	"github.com/Ramsey-B/fern/pkg/clock"
	"github.com/Ramsey-B/fern/pkg/idgen"
	"github.com/Ramsey-B/fern/pkg/models"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	pipeline    *Pipeline
	apis        *inmemory.ApiStore
	plans       *inmemory.PlanStore
	pages       *inmemory.PageStore
	memberships *inmemory.MembershipStore
	audits      *inmemory.AuditStore
	indexer     *inmemory.Indexer
	notifier    *inmemory.Notifier
}

func newFixture(t *testing.T, mode models.PrimaryOwnerMode) *fixture {
	t.Helper()

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	clk := clock.Fixed(testNow)
	ids := idgen.New()

	f := &fixture{
		apis:        inmemory.NewApiStore(),
		plans:       inmemory.NewPlanStore(),
		pages:       inmemory.NewPageStore(),
		memberships: inmemory.NewMembershipStore(),
		audits:      inmemory.NewAuditStore(),
		indexer:     inmemory.NewIndexer(),
		notifier:    inmemory.NewNotifier(),
	}

	f.pipeline = NewPipeline(PipelineParams{
		Apis:        f.apis,
		Plans:       f.plans,
		Pages:       f.pages,
		Memberships: f.memberships,
		Audits:      audit.NewService(f.audits, clk, ids, logger),
		Indexer:     f.indexer,
		Notifier:    f.notifier,
		Settings:    StaticSettings{Mode: mode},
		Clock:       clk,
		Ids:         ids,
		WorkerCount: 1,
		Logger:      logger,
	})

	return f
}

func testJob() models.IngestionJob {
	return models.IngestionJob{
		ID:            "job-1",
		SourceID:      "integration-id",
		EnvironmentID: "environment-id",
		InitiatorID:   "user-id",
		Status:        models.JobStatusPending,
	}
}

func testInfo() models.AuditInfo {
	return models.AuditInfo{
		OrganizationID: "org-id",
		EnvironmentID:  "environment-id",
		UserID:         "user-id",
	}
}

func TestIngestBatch_CreatesApi(t *testing.T) {
	f := newFixture(t, models.PrimaryOwnerModeUser)

	external := models.ExternalApi{
		UniqueID:    "uid-1",
		Name:        "orders",
		Description: "order service",
		Version:     "2.1.0",
		Plans: []models.ExternalPlan{
			{ID: "plan-1", Name: "gold", SecurityType: models.PlanSecurityApiKey},
		},
		Pages: []models.ExternalPage{
			{Type: models.PageTypeSwagger, Content: "openapi: 3.0.0"},
		},
	}

	result := f.pipeline.IngestBatch(context.Background(), testJob(), testInfo(), []models.ExternalApi{external})

	assert.Equal(t, Result{Created: 1}, result)

	apiID := "environment-idintegration-iduid-1"
	apis := f.apis.All()
	require.Len(t, apis, 1)
	api := apis[0]
	assert.Equal(t, apiID, api.ID)
	assert.Equal(t, "orders", api.Name)
	assert.Equal(t, "2.1.0", api.Version)
	assert.Equal(t, models.ApiLifecycleCreated, api.LifecycleState)
	assert.Equal(t, testNow, api.CreatedAt)

	plans := f.plans.All()
	require.Len(t, plans, 1)
	assert.Equal(t, apiID+"plan-1", plans[0].ID)
	assert.Equal(t, models.PlanValidationManual, plans[0].Validation)
	assert.Equal(t, models.PlanStatusPublished, plans[0].Status)

	pages := f.pages.All()
	require.Len(t, pages, 1)
	assert.Equal(t, "orders-oas.yml", pages[0].Name)
	assert.Equal(t, models.PageVisibilityPrivate, pages[0].Visibility)
	assert.True(t, pages[0].Published)
	assert.Equal(t, map[string]string{"tryIt": "true", "viewer": "Swagger"}, pages[0].Configuration)

	memberships := f.memberships.All()
	require.Len(t, memberships, 1)
	assert.Equal(t, "user-id", memberships[0].MemberID)
	assert.Equal(t, models.MembershipSourceSystem, memberships[0].Source)
	assert.Equal(t, models.ApiPrimaryOwnerRoleID("org-id"), memberships[0].RoleID)

	assert.Equal(t, []models.AuditEvent{
		models.AuditApiCreated,
		models.AuditMembershipCreated,
		models.AuditPlanCreated,
		models.AuditPageCreated,
	}, f.audits.Events(apiID))

	assert.Contains(t, f.indexer.Apis, apiID)
	assert.Equal(t, []string{apiID}, f.notifier.IngestedApis)
}

func TestIngestBatch_DefaultsMissingVersion(t *testing.T) {
	f := newFixture(t, models.PrimaryOwnerModeUser)

	result := f.pipeline.IngestBatch(context.Background(), testJob(), testInfo(), []models.ExternalApi{
		{UniqueID: "uid-1", Name: "orders"},
	})

	assert.Equal(t, Result{Created: 1}, result)
	apis := f.apis.All()
	require.Len(t, apis, 1)
	assert.Equal(t, models.DefaultApiVersion, apis[0].Version)
}

func TestIngestBatch_UpdatePreservesOperatorFields(t *testing.T) {
	f := newFixture(t, models.PrimaryOwnerModeUser)
	job := testJob()
	info := testInfo()

	f.pipeline.IngestBatch(context.Background(), job, info, []models.ExternalApi{
		{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"},
	})

	// operator curates the record after ingestion
	apiID := "environment-idintegration-iduid-1"
	curated, err := f.apis.Get(context.Background(), apiID)
	require.NoError(t, err)
	require.NotNil(t, curated)
	curated.LifecycleState = models.ApiLifecycleUnpublished
	curated.Picture = "picture-data"
	curated.Categories = []string{"commerce"}
	curated.Groups = []string{"team-a"}
	require.NoError(t, f.apis.Update(context.Background(), *curated))

	result := f.pipeline.IngestBatch(context.Background(), job, info, []models.ExternalApi{
		{UniqueID: "uid-1", Name: "orders-renamed", Version: "1.1.0"},
	})

	assert.Equal(t, Result{Updated: 1}, result)
	updated, err := f.apis.Get(context.Background(), apiID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "orders-renamed", updated.Name)
	assert.Equal(t, "1.1.0", updated.Version)
	assert.Equal(t, models.ApiLifecycleUnpublished, updated.LifecycleState)
	assert.Equal(t, "picture-data", updated.Picture)
	assert.Equal(t, []string{"commerce"}, updated.Categories)
	assert.Equal(t, []string{"team-a"}, updated.Groups)
}

func TestIngestBatch_IsIdempotent(t *testing.T) {
	f := newFixture(t, models.PrimaryOwnerModeUser)
	job := testJob()
	info := testInfo()
	batch := []models.ExternalApi{
		{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"},
		{UniqueID: "uid-2", Name: "billing", Version: "3.0.0"},
	}

	first := f.pipeline.IngestBatch(context.Background(), job, info, batch)
	second := f.pipeline.IngestBatch(context.Background(), job, info, batch)

	assert.Equal(t, Result{Created: 2}, first)
	assert.Equal(t, Result{Updated: 2}, second)
	assert.Len(t, f.apis.All(), 2)
}

func TestIngestBatch_IsolatesItemFailures(t *testing.T) {
	f := newFixture(t, models.PrimaryOwnerModeUser)

	result := f.pipeline.IngestBatch(context.Background(), testJob(), testInfo(), []models.ExternalApi{
		{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"},
		{UniqueID: "uid-2", Name: "", Version: "1.0.0"}, // fails validation
		{UniqueID: "uid-3", Name: "billing", Version: "1.0.0"},
	})

	assert.Equal(t, Result{Created: 2, Skipped: 1}, result)

	apis := f.apis.All()
	require.Len(t, apis, 2)
	assert.Equal(t, "orders", apis[0].Name)
	assert.Equal(t, "billing", apis[1].Name)
}

func TestIngestBatch_RenamesPagesWithApi(t *testing.T) {
	f := newFixture(t, models.PrimaryOwnerModeUser)
	job := testJob()
	info := testInfo()
	apiID := "environment-idintegration-iduid-1"

	f.pipeline.IngestBatch(context.Background(), job, info, []models.ExternalApi{
		{
			UniqueID: "uid-1",
			Name:     "orders",
			Version:  "1.0.0",
			Pages:    []models.ExternalPage{{Type: models.PageTypeSwagger, Content: "openapi: 3.0.0"}},
		},
	})

	result := f.pipeline.IngestBatch(context.Background(), job, info, []models.ExternalApi{
		{
			UniqueID: "uid-1",
			Name:     "orders-v2",
			Version:  "1.0.0",
			Pages:    []models.ExternalPage{{Type: models.PageTypeSwagger, Content: "openapi: 3.0.1"}},
		},
	})

	assert.Equal(t, Result{Updated: 1}, result)

	pages := f.pages.All()
	require.Len(t, pages, 1)
	assert.Equal(t, "orders-v2-oas.yml", pages[0].Name)
	assert.Equal(t, "openapi: 3.0.1", pages[0].Content)

	// API event precedes the page event within the item
	events := f.audits.Events(apiID)
	assert.Equal(t, []models.AuditEvent{
		models.AuditApiCreated,
		models.AuditMembershipCreated,
		models.AuditPageCreated,
		models.AuditApiUpdated,
		models.AuditPageUpdated,
	}, events)
}

func TestIngestBatch_AsyncApiPage(t *testing.T) {
	f := newFixture(t, models.PrimaryOwnerModeUser)

	f.pipeline.IngestBatch(context.Background(), testJob(), testInfo(), []models.ExternalApi{
		{
			UniqueID: "uid-1",
			Name:     "events",
			Version:  "1.0.0",
			Pages:    []models.ExternalPage{{Type: models.PageTypeAsyncApi, Content: "asyncapi: 2.6.0"}},
		},
	})

	pages := f.pages.All()
	require.Len(t, pages, 1)
	assert.Equal(t, "events.json", pages[0].Name)
	assert.Nil(t, pages[0].Configuration)
}

func TestIngestBatch_IgnoresUnsupportedPages(t *testing.T) {
	f := newFixture(t, models.PrimaryOwnerModeUser)

	result := f.pipeline.IngestBatch(context.Background(), testJob(), testInfo(), []models.ExternalApi{
		{
			UniqueID: "uid-1",
			Name:     "orders",
			Version:  "1.0.0",
			Pages:    []models.ExternalPage{{Type: models.PageTypeMarkdown, Content: "# readme"}},
		},
		{UniqueID: "uid-2", Name: "billing", Version: "1.0.0", Pages: nil},
	})

	assert.Equal(t, Result{Created: 2}, result)
	assert.Empty(t, f.pages.All())
}

func TestIngestBatch_PrimaryOwnerModes(t *testing.T) {
	t.Run("group mode skips membership", func(t *testing.T) {
		f := newFixture(t, models.PrimaryOwnerModeGroup)

		f.pipeline.IngestBatch(context.Background(), testJob(), testInfo(), []models.ExternalApi{
			{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"},
		})

		assert.Empty(t, f.memberships.All())
		events := f.audits.Events("environment-idintegration-iduid-1")
		assert.NotContains(t, events, models.AuditMembershipCreated)
	})

	t.Run("hybrid mode creates membership", func(t *testing.T) {
		f := newFixture(t, models.PrimaryOwnerModeHybrid)

		f.pipeline.IngestBatch(context.Background(), testJob(), testInfo(), []models.ExternalApi{
			{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"},
		})

		assert.Len(t, f.memberships.All(), 1)
	})
}
