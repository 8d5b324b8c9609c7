// Package retraction removes federated APIs from the catalog when their
// integration's assets are withdrawn, cascading over every dependent
// resource.
package retraction

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/clock"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/search"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ApiStore lists and deletes federated APIs.
type ApiStore interface {
	FindByIntegration(ctx context.Context, integrationID string) ([]models.FederatedApi, error)
	Delete(ctx context.Context, id string) error
}

// PlanStore deletes an API's plans.
type PlanStore interface {
	DeleteByApi(ctx context.Context, apiID string) error
}

// PageStore lists and deletes an API's documentation pages.
type PageStore interface {
	FindByReference(ctx context.Context, referenceID string) ([]models.DocumentationPage, error)
	DeleteByReference(ctx context.Context, referenceID string) error
}

// SubscriptionStore lists, updates and deletes an API's subscriptions.
type SubscriptionStore interface {
	FindByApi(ctx context.Context, apiID string) ([]models.Subscription, error)
	Update(ctx context.Context, subscription models.Subscription) error
	Delete(ctx context.Context, id string) error
}

// ApiKeyStore revokes the credentials of a subscription.
type ApiKeyStore interface {
	RevokeBySubscription(ctx context.Context, subscriptionID string, at time.Time) error
}

// MetadataStore deletes a resource's metadata.
type MetadataStore interface {
	DeleteByReference(ctx context.Context, referenceType, referenceID string) error
}

// MembershipStore deletes a resource's memberships.
type MembershipStore interface {
	DeleteByReference(ctx context.Context, referenceType, referenceID string) error
}

// Auditor appends audit entries.
type Auditor interface {
	RecordApiEvent(ctx context.Context, info models.AuditInfo, apiID string, event models.AuditEvent, properties map[string]string) error
}

// Notifier publishes lifecycle events. Implementations are fire-and-forget.
type Notifier interface {
	ApiDeleted(ctx context.Context, info models.AuditInfo, api models.FederatedApi)
	SubscriptionClosed(ctx context.Context, info models.AuditInfo, subscription models.Subscription)
}

// Result accounts for one retraction run. Protected APIs are skipped, APIs
// with no lifecycle state or a failed cascade are counted as errors; neither
// fails the run.
type Result struct {
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// EngineParams collects the engine's collaborators.
type EngineParams struct {
	Apis          ApiStore
	Plans         PlanStore
	Pages         PageStore
	Subscriptions SubscriptionStore
	ApiKeys       ApiKeyStore
	Metadata      MetadataStore
	Memberships   MembershipStore
	Audits        Auditor
	Indexer       search.Indexer
	Notifier      Notifier
	Clock         clock.Clock
	Logger        ectologger.Logger
}

type Engine struct {
	apis          ApiStore
	plans         PlanStore
	pages         PageStore
	subscriptions SubscriptionStore
	apiKeys       ApiKeyStore
	metadata      MetadataStore
	memberships   MembershipStore
	audits        Auditor
	indexer       search.Indexer
	notifier      Notifier
	clock         clock.Clock
	logger        ectologger.Logger
}

func NewEngine(params EngineParams) *Engine {
	return &Engine{
		apis:          params.Apis,
		plans:         params.Plans,
		pages:         params.Pages,
		subscriptions: params.Subscriptions,
		apiKeys:       params.ApiKeys,
		metadata:      params.Metadata,
		memberships:   params.Memberships,
		audits:        params.Audits,
		indexer:       params.Indexer,
		notifier:      params.Notifier,
		clock:         params.Clock,
		logger:        params.Logger,
	}
}

// Run retracts every federated API of the integration. PUBLISHED APIs are
// still consumable and must be unpublished first, so they are skipped. APIs
// without a lifecycle state cannot be classified and are counted as errors.
func (e *Engine) Run(ctx context.Context, integrationID string, info models.AuditInfo) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "retraction.Engine.Run")
	defer span.End()

	apis, err := e.apis.FindByIntegration(ctx, integrationID)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("failed to list federated apis for retraction")
		return Result{}, err
	}

	var result Result
	for _, api := range apis {
		switch api.LifecycleState {
		case models.ApiLifecyclePublished:
			result.Skipped++
		case "":
			e.logger.WithContext(ctx).WithFields(map[string]any{
				"api_id": api.ID,
			}).Error("federated api has no lifecycle state")
			result.Errors++
		default:
			if err := e.retractOne(ctx, api, info); err != nil {
				e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"api_id": api.ID,
				}).Error("failed to retract federated api")
				result.Errors++
			} else {
				result.Deleted++
			}
		}
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"integration_id": integrationID,
		"deleted":        result.Deleted,
		"skipped":        result.Skipped,
		"errors":         result.Errors,
	}).Info("retraction run completed")

	return result, nil
}

func (e *Engine) retractOne(ctx context.Context, api models.FederatedApi, info models.AuditInfo) error {
	ctx, span := tracing.StartSpan(ctx, "retraction.Engine.retractOne")
	defer span.End()

	if err := e.closeSubscriptions(ctx, api.ID, info); err != nil {
		return err
	}

	if err := e.plans.DeleteByApi(ctx, api.ID); err != nil {
		return err
	}

	pages, err := e.pages.FindByReference(ctx, api.ID)
	if err != nil {
		return err
	}
	if err := e.pages.DeleteByReference(ctx, api.ID); err != nil {
		return err
	}
	for _, page := range pages {
		if err := e.indexer.RemovePage(ctx, page.ID); err != nil {
			e.logger.WithContext(ctx).WithError(err).Warn("failed to remove page from index")
		}
	}

	if err := e.metadata.DeleteByReference(ctx, models.AuditReferenceApi, api.ID); err != nil {
		return err
	}
	if err := e.memberships.DeleteByReference(ctx, models.AuditReferenceApi, api.ID); err != nil {
		return err
	}

	if err := e.apis.Delete(ctx, api.ID); err != nil {
		return err
	}

	if err := e.indexer.RemoveApi(ctx, api.ID); err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("failed to remove api from index")
	}

	if err := e.audits.RecordApiEvent(ctx, info, api.ID, models.AuditApiDeleted, nil); err != nil {
		return err
	}

	e.notifier.ApiDeleted(ctx, info, api)

	return nil
}

// closeSubscriptions closes every active subscription of the API, revoking
// its keys and notifying the subscriber, then deletes all subscription
// records.
func (e *Engine) closeSubscriptions(ctx context.Context, apiID string, info models.AuditInfo) error {
	subscriptions, err := e.subscriptions.FindByApi(ctx, apiID)
	if err != nil {
		return err
	}

	now := e.clock.Now()

	for _, subscription := range subscriptions {
		if subscription.IsActive() {
			closed := subscription.Close(now)
			if err := e.subscriptions.Update(ctx, closed); err != nil {
				return err
			}
			if err := e.apiKeys.RevokeBySubscription(ctx, subscription.ID, now); err != nil {
				return err
			}
			if err := e.audits.RecordApiEvent(ctx, info, apiID, models.AuditSubscriptionClosed, map[string]string{
				models.AuditPropertyApplication: subscription.ApplicationID,
			}); err != nil {
				return err
			}
			e.notifier.SubscriptionClosed(ctx, info, closed)
		}

		if err := e.subscriptions.Delete(ctx, subscription.ID); err != nil {
			return err
		}
	}

	return nil
}
