// Package events handles event emission for federated resource lifecycle
// changes. Emission is fire-and-forget: a broker outage never fails the
// operation that triggered the event.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes federation lifecycle events
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// ApiIngested emits an api.ingested event after an API is created or updated
// by an ingestion run.
func (e *Emitter) ApiIngested(ctx context.Context, info models.AuditInfo, api models.FederatedApi, isNew bool) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ApiIngested")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"is_new":         isNew,
		"name":           api.Name,
		"version":        api.Version,
	})

	event := &kafka.FederationEvent{
		EventType:      "api.ingested",
		OrganizationID: info.OrganizationID,
		EnvironmentID:  api.EnvironmentID,
		ResourceID:     api.ID,
		ResourceType:   "api",
		IntegrationID:  api.IntegrationID,
		Data:           data,
	}

	if err := e.producer.PublishFederationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit api.ingested event")
	}
}

// ApiDeleted emits an api.deleted event after an API is retracted.
func (e *Emitter) ApiDeleted(ctx context.Context, info models.AuditInfo, api models.FederatedApi) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ApiDeleted")
	defer span.End()

	event := &kafka.FederationEvent{
		EventType:      "api.deleted",
		OrganizationID: info.OrganizationID,
		EnvironmentID:  api.EnvironmentID,
		ResourceID:     api.ID,
		ResourceType:   "api",
		IntegrationID:  api.IntegrationID,
	}

	if err := e.producer.PublishFederationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit api.deleted event")
	}
}

// SubscriptionClosed emits a subscription.closed event so the subscribing
// application is notified that its access was revoked.
func (e *Emitter) SubscriptionClosed(ctx context.Context, info models.AuditInfo, subscription models.Subscription) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.SubscriptionClosed")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"api_id":         subscription.ApiID,
		"plan_id":        subscription.PlanID,
		"application_id": subscription.ApplicationID,
	})

	event := &kafka.FederationEvent{
		EventType:      "subscription.closed",
		OrganizationID: info.OrganizationID,
		EnvironmentID:  info.EnvironmentID,
		ResourceID:     subscription.ID,
		ResourceType:   "subscription",
		Data:           data,
	}

	if err := e.producer.PublishFederationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit subscription.closed event")
	}
}
