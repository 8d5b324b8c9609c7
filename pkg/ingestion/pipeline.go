// Package ingestion implements the upsert pipeline that lands discovered
// external assets in the catalog.
package ingestion

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/fern/pkg/clock"
	"github.com/Ramsey-B/fern/pkg/idgen"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/search"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ApiStore persists federated APIs. Get returns nil without error when no
// record exists.
type ApiStore interface {
	Get(ctx context.Context, id string) (*models.FederatedApi, error)
	Create(ctx context.Context, api models.FederatedApi) error
	Update(ctx context.Context, api models.FederatedApi) error
}

// PlanStore persists federated plans.
type PlanStore interface {
	Get(ctx context.Context, id string) (*models.FederatedPlan, error)
	Create(ctx context.Context, plan models.FederatedPlan) error
	Update(ctx context.Context, plan models.FederatedPlan) error
}

// PageStore persists documentation pages. GetByReferenceAndType returns nil
// without error when the API has no page of that type yet.
type PageStore interface {
	GetByReferenceAndType(ctx context.Context, referenceID string, pageType models.PageType) (*models.DocumentationPage, error)
	Create(ctx context.Context, page models.DocumentationPage) error
	Update(ctx context.Context, page models.DocumentationPage) error
}

// MembershipStore persists memberships.
type MembershipStore interface {
	Create(ctx context.Context, membership models.Membership) error
}

// Auditor appends audit entries.
type Auditor interface {
	RecordApiEvent(ctx context.Context, info models.AuditInfo, apiID string, event models.AuditEvent, properties map[string]string) error
}

// Notifier publishes lifecycle events. Implementations are fire-and-forget.
type Notifier interface {
	ApiIngested(ctx context.Context, info models.AuditInfo, api models.FederatedApi, isNew bool)
}

// Settings resolves environment-scoped platform settings.
type Settings interface {
	ApiPrimaryOwnerMode(ctx context.Context, environmentID string) (models.PrimaryOwnerMode, error)
}

// StaticSettings reports a fixed primary owner mode for every environment.
type StaticSettings struct {
	Mode models.PrimaryOwnerMode
}

func (s StaticSettings) ApiPrimaryOwnerMode(ctx context.Context, environmentID string) (models.PrimaryOwnerMode, error) {
	return s.Mode, nil
}

// Result accumulates the per-item outcomes of one batch. Failed items are
// counted as skipped, never surfaced as batch errors.
type Result struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
	Skipped int64 `json:"skipped"`
}

// PipelineParams collects the pipeline's collaborators.
type PipelineParams struct {
	Apis        ApiStore
	Plans       PlanStore
	Pages       PageStore
	Memberships MembershipStore
	Audits      Auditor
	Indexer     search.Indexer
	Notifier    Notifier
	Settings    Settings
	Clock       clock.Clock
	Ids         idgen.Generator
	WorkerCount int
	Logger      ectologger.Logger
}

// Pipeline upserts external assets into the catalog. Items within a batch are
// independent: each either lands fully or is skipped, and audit ordering is
// guaranteed per item only.
type Pipeline struct {
	apis        ApiStore
	plans       PlanStore
	pages       PageStore
	memberships MembershipStore
	audits      Auditor
	indexer     search.Indexer
	notifier    Notifier
	settings    Settings
	clock       clock.Clock
	ids         idgen.Generator
	validate    *validator.Validate
	workers     int
	logger      ectologger.Logger
}

func NewPipeline(params PipelineParams) *Pipeline {
	workers := params.WorkerCount
	if workers < 1 {
		workers = 1
	}

	return &Pipeline{
		apis:        params.Apis,
		plans:       params.Plans,
		pages:       params.Pages,
		memberships: params.Memberships,
		audits:      params.Audits,
		indexer:     params.Indexer,
		notifier:    params.Notifier,
		settings:    params.Settings,
		clock:       params.Clock,
		ids:         params.Ids,
		validate:    validator.New(),
		workers:     workers,
		logger:      params.Logger,
	}
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
)

// IngestBatch upserts every item of the batch with bounded concurrency.
// Committed items survive even when later items fail or the context is
// cancelled mid-batch.
func (p *Pipeline) IngestBatch(ctx context.Context, job models.IngestionJob, info models.AuditInfo, batch []models.ExternalApi) Result {
	ctx, span := tracing.StartSpan(ctx, "ingestion.Pipeline.IngestBatch")
	defer span.End()

	var created, updated, skipped atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(p.workers)

	for _, item := range batch {
		g.Go(func() error {
			if ctx.Err() != nil {
				skipped.Add(1)
				return nil
			}

			result, err := p.ingestOne(ctx, job, info, item)
			if err != nil {
				p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"job_id":    job.ID,
					"unique_id": item.UniqueID,
				}).Error("failed to ingest external api")
				skipped.Add(1)
				return nil
			}

			switch result {
			case outcomeCreated:
				created.Add(1)
			case outcomeUpdated:
				updated.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()

	result := Result{
		Created: created.Load(),
		Updated: updated.Load(),
		Skipped: skipped.Load(),
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":  job.ID,
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
	}).Info("ingested batch")

	return result
}

func (p *Pipeline) ingestOne(ctx context.Context, job models.IngestionJob, info models.AuditInfo, external models.ExternalApi) (outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestion.Pipeline.ingestOne")
	defer span.End()

	apiID := identity.ApiID(job.EnvironmentID, job.SourceID, external.UniqueID)

	existing, err := p.apis.Get(ctx, apiID)
	if err != nil {
		return outcomeSkipped, err
	}

	now := p.clock.Now()

	if existing == nil {
		api := models.NewFederatedApi(apiID, job.EnvironmentID, job.SourceID, external, now)
		if err := p.validate.Struct(api); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"unique_id": external.UniqueID,
			}).Warn("discovered api failed validation, skipping")
			return outcomeSkipped, nil
		}

		if err := p.apis.Create(ctx, api); err != nil {
			return outcomeSkipped, err
		}

		if err := p.audits.RecordApiEvent(ctx, info, api.ID, models.AuditApiCreated, nil); err != nil {
			return outcomeSkipped, err
		}

		if err := p.createPrimaryOwnerMembership(ctx, info, api, now); err != nil {
			return outcomeSkipped, err
		}

		if err := p.ingestPlans(ctx, info, api.ID, external.Plans, now); err != nil {
			return outcomeSkipped, err
		}
		if err := p.ingestPages(ctx, info, api, external.Pages, now); err != nil {
			return outcomeSkipped, err
		}

		if err := p.indexer.IndexApi(ctx, api); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("failed to index created api")
		}
		p.notifier.ApiIngested(ctx, info, api, true)

		return outcomeCreated, nil
	}

	api := existing.ApplyExternal(external, now)
	if err := p.validate.Struct(api); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"unique_id": external.UniqueID,
		}).Warn("discovered api failed validation, skipping")
		return outcomeSkipped, nil
	}

	if err := p.apis.Update(ctx, api); err != nil {
		return outcomeSkipped, err
	}

	if err := p.audits.RecordApiEvent(ctx, info, api.ID, models.AuditApiUpdated, nil); err != nil {
		return outcomeSkipped, err
	}

	if err := p.ingestPlans(ctx, info, api.ID, external.Plans, now); err != nil {
		return outcomeSkipped, err
	}
	if err := p.ingestPages(ctx, info, api, external.Pages, now); err != nil {
		return outcomeSkipped, err
	}

	if err := p.indexer.IndexApi(ctx, api); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("failed to index updated api")
	}
	p.notifier.ApiIngested(ctx, info, api, false)

	return outcomeUpdated, nil
}

// createPrimaryOwnerMembership grants the initiating user primary ownership
// of the created API when the environment's primary owner mode includes user
// owners. GROUP mode environments assign ownership out of band.
func (p *Pipeline) createPrimaryOwnerMembership(ctx context.Context, info models.AuditInfo, api models.FederatedApi, now time.Time) error {
	mode, err := p.settings.ApiPrimaryOwnerMode(ctx, api.EnvironmentID)
	if err != nil {
		return err
	}

	if mode != models.PrimaryOwnerModeUser && mode != models.PrimaryOwnerModeHybrid {
		return nil
	}

	membership := models.NewPrimaryOwnerMembership(p.ids.NewID(), api.ID, info.UserID, info.OrganizationID, now)
	if err := p.memberships.Create(ctx, membership); err != nil {
		return err
	}

	return p.audits.RecordApiEvent(ctx, info, api.ID, models.AuditMembershipCreated, map[string]string{
		models.AuditPropertyUser: info.UserID,
	})
}

func (p *Pipeline) ingestPlans(ctx context.Context, info models.AuditInfo, apiID string, externals []models.ExternalPlan, now time.Time) error {
	for _, external := range externals {
		planID := identity.PlanID(apiID, external.ID)

		existing, err := p.plans.Get(ctx, planID)
		if err != nil {
			return err
		}

		if existing == nil {
			plan := models.NewFederatedPlan(planID, apiID, external, now)
			if err := p.plans.Create(ctx, plan); err != nil {
				return err
			}
			if err := p.audits.RecordApiEvent(ctx, info, apiID, models.AuditPlanCreated, map[string]string{
				models.AuditPropertyPlan: plan.ID,
			}); err != nil {
				return err
			}
			continue
		}

		plan := existing.ApplyExternal(external, now)
		if err := p.plans.Update(ctx, plan); err != nil {
			return err
		}
		if err := p.audits.RecordApiEvent(ctx, info, apiID, models.AuditPlanUpdated, map[string]string{
			models.AuditPropertyPlan: plan.ID,
		}); err != nil {
			return err
		}
	}

	return nil
}

// ingestPages upserts the API's documentation artifacts. Only swagger and
// asyncapi pages are ingested; a nil page list is a no-op. Page names derive
// from the API name, so an API rename rewrites the page name too.
func (p *Pipeline) ingestPages(ctx context.Context, info models.AuditInfo, api models.FederatedApi, externals []models.ExternalPage, now time.Time) error {
	for _, external := range externals {
		if external.Type != models.PageTypeSwagger && external.Type != models.PageTypeAsyncApi {
			p.logger.WithContext(ctx).WithFields(map[string]any{
				"api_id":    api.ID,
				"page_type": external.Type,
			}).Debug("ignoring unsupported page type")
			continue
		}

		existing, err := p.pages.GetByReferenceAndType(ctx, api.ID, external.Type)
		if err != nil {
			return err
		}

		if existing == nil {
			page := models.NewDocumentationPage(p.ids.NewID(), api.ID, api.Name, external, now)
			if err := p.pages.Create(ctx, page); err != nil {
				return err
			}
			if err := p.audits.RecordApiEvent(ctx, info, api.ID, models.AuditPageCreated, map[string]string{
				models.AuditPropertyPage: page.ID,
			}); err != nil {
				return err
			}
			if err := p.indexer.IndexPage(ctx, page); err != nil {
				p.logger.WithContext(ctx).WithError(err).Warn("failed to index created page")
			}
			continue
		}

		page := existing.ApplyExternal(api.Name, external, now)
		if err := p.pages.Update(ctx, page); err != nil {
			return err
		}
		if err := p.audits.RecordApiEvent(ctx, info, api.ID, models.AuditPageUpdated, map[string]string{
			models.AuditPropertyPage: page.ID,
		}); err != nil {
			return err
		}
		if err := p.indexer.IndexPage(ctx, page); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("failed to index updated page")
		}
	}

	return nil
}
