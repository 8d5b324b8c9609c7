package retraction

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
	engine        *Engine
	apis          *inmemory.ApiStore
	plans         *inmemory.PlanStore
	pages         *inmemory.PageStore
	subscriptions *inmemory.SubscriptionStore
	apiKeys       *inmemory.ApiKeyStore
	metadata      *inmemory.MetadataStore
	memberships   *inmemory.MembershipStore
	audits        *inmemory.AuditStore
	indexer       *inmemory.Indexer
	notifier      *inmemory.Notifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	clk := clock.Fixed(testNow)

	f := &fixture{
		apis:          inmemory.NewApiStore(),
		plans:         inmemory.NewPlanStore(),
		pages:         inmemory.NewPageStore(),
		subscriptions: inmemory.NewSubscriptionStore(),
		apiKeys:       inmemory.NewApiKeyStore(),
		metadata:      inmemory.NewMetadataStore(),
		memberships:   inmemory.NewMembershipStore(),
		audits:        inmemory.NewAuditStore(),
		indexer:       inmemory.NewIndexer(),
		notifier:      inmemory.NewNotifier(),
	}

	f.engine = NewEngine(EngineParams{
		Apis:          f.apis,
		Plans:         f.plans,
		Pages:         f.pages,
		Subscriptions: f.subscriptions,
		ApiKeys:       f.apiKeys,
		Metadata:      f.metadata,
		Memberships:   f.memberships,
		Audits:        audit.NewService(f.audits, clk, idgen.New(), logger),
		Indexer:       f.indexer,
		Notifier:      f.notifier,
		Clock:         clk,
		Logger:        logger,
	})

	return f
}

func (f *fixture) seedApi(t *testing.T, id string, state models.ApiLifecycleState) models.FederatedApi {
	t.Helper()
	api := models.FederatedApi{
		ID:             id,
		EnvironmentID:  "environment-id",
		IntegrationID:  "integration-id",
		Name:           "api " + id,
		Version:        "1.0.0",
		LifecycleState: state,
	}
	require.NoError(t, f.apis.Create(context.Background(), api))
	return api
}

func testInfo() models.AuditInfo {
	return models.AuditInfo{
		OrganizationID: "org-id",
		EnvironmentID:  "environment-id",
		UserID:         "user-id",
	}
}

func TestRun_DeletesUnpublishedApis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	api := f.seedApi(t, "api-1", models.ApiLifecycleUnpublished)

	require.NoError(t, f.plans.Create(ctx, models.FederatedPlan{ID: "plan-1", ApiID: api.ID}))
	require.NoError(t, f.pages.Create(ctx, models.DocumentationPage{ID: "page-1", ReferenceID: api.ID}))
	f.metadata.Seed(models.Metadata{Key: "team", ReferenceType: models.AuditReferenceApi, ReferenceID: api.ID})
	require.NoError(t, f.memberships.Create(ctx, models.Membership{
		ID: "member-1", ReferenceType: models.AuditReferenceApi, ReferenceID: api.ID,
	}))
	require.NoError(t, f.indexer.IndexApi(ctx, api))

	result, err := f.engine.Run(ctx, "integration-id", testInfo())

	require.NoError(t, err)
	assert.Equal(t, Result{Deleted: 1}, result)
	assert.Empty(t, f.apis.All())
	assert.Empty(t, f.plans.All())
	assert.Empty(t, f.pages.All())
	assert.Empty(t, f.metadata.All())
	assert.Empty(t, f.memberships.All())
	assert.NotContains(t, f.indexer.Apis, api.ID)
	assert.Equal(t, []string{"page-1"}, f.indexer.RemovedPages)
	assert.Equal(t, []models.AuditEvent{models.AuditApiDeleted}, f.audits.Events(api.ID))
	assert.Equal(t, []string{api.ID}, f.notifier.DeletedApis)
}

func TestRun_SkipsPublishedApis(t *testing.T) {
	f := newFixture(t)
	f.seedApi(t, "api-1", models.ApiLifecyclePublished)
	f.seedApi(t, "api-2", models.ApiLifecycleDeprecated)

	result, err := f.engine.Run(context.Background(), "integration-id", testInfo())

	require.NoError(t, err)
	assert.Equal(t, Result{Deleted: 1, Skipped: 1}, result)

	apis := f.apis.All()
	require.Len(t, apis, 1)
	assert.Equal(t, "api-1", apis[0].ID)
	assert.Empty(t, f.audits.Events("api-1"))
}

func TestRun_CountsMissingLifecycleAsError(t *testing.T) {
	f := newFixture(t)
	f.seedApi(t, "api-1", "")
	f.seedApi(t, "api-2", models.ApiLifecycleCreated)

	result, err := f.engine.Run(context.Background(), "integration-id", testInfo())

	require.NoError(t, err)
	assert.Equal(t, Result{Deleted: 1, Errors: 1}, result)

	// the unclassifiable API is left untouched
	apis := f.apis.All()
	require.Len(t, apis, 1)
	assert.Equal(t, "api-1", apis[0].ID)
}

func TestRun_ClosesActiveSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	api := f.seedApi(t, "api-1", models.ApiLifecycleUnpublished)

	f.subscriptions.Seed(
		models.Subscription{ID: "sub-1", ApiID: api.ID, ApplicationID: "app-1", Status: models.SubscriptionStatusAccepted},
		models.Subscription{ID: "sub-2", ApiID: api.ID, ApplicationID: "app-2", Status: models.SubscriptionStatusPaused},
		models.Subscription{ID: "sub-3", ApiID: api.ID, ApplicationID: "app-3", Status: models.SubscriptionStatusRejected},
	)

	result, err := f.engine.Run(ctx, "integration-id", testInfo())

	require.NoError(t, err)
	assert.Equal(t, Result{Deleted: 1}, result)

	// every subscription record is removed
	assert.Empty(t, f.subscriptions.All())

	// only the active ones were closed first
	assert.ElementsMatch(t, []string{"sub-1", "sub-2"}, f.notifier.ClosedSubscriptions)
	assert.Contains(t, f.apiKeys.Revoked, "sub-1")
	assert.Contains(t, f.apiKeys.Revoked, "sub-2")
	assert.NotContains(t, f.apiKeys.Revoked, "sub-3")

	entries := f.audits.All()
	var closures []string
	for _, entry := range entries {
		if entry.Event == models.AuditSubscriptionClosed {
			closures = append(closures, entry.Properties[models.AuditPropertyApplication])
		}
	}
	assert.ElementsMatch(t, []string{"app-1", "app-2"}, closures)
}

func TestRun_EmptyIntegration(t *testing.T) {
	f := newFixture(t)

	result, err := f.engine.Run(context.Background(), "integration-id", testInfo())

	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
}
