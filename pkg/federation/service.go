// Package federation exposes the orchestrating use cases of the federation
// engine: discovery previews, ingestion runs and retraction.
package federation

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/agent"
	"github.com/Ramsey-B/fern/pkg/clock"
	"github.com/Ramsey-B/fern/pkg/differ"
	"github.com/Ramsey-B/fern/pkg/idgen"
	"github.com/Ramsey-B/fern/pkg/ingestion"
	"github.com/Ramsey-B/fern/pkg/license"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/retraction"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// IntegrationStore resolves and deletes integrations. Get returns nil without
// error when no record exists.
type IntegrationStore interface {
	Get(ctx context.Context, id string) (*models.Integration, error)
	Delete(ctx context.Context, id string) error
}

// JobStore persists ingestion jobs. Get returns nil without error when no
// record exists.
type JobStore interface {
	Get(ctx context.Context, id string) (*models.IngestionJob, error)
	Create(ctx context.Context, job models.IngestionJob) error
	Update(ctx context.Context, job models.IngestionJob) error
}

// ApiCounter counts the federated APIs still owned by an integration.
type ApiCounter interface {
	CountByIntegration(ctx context.Context, integrationID string) (int64, error)
}

// ServiceParams collects the service's collaborators.
type ServiceParams struct {
	Integrations IntegrationStore
	Jobs         JobStore
	Apis         ApiCounter
	Agent        agent.Agent
	License      license.Manager
	Differ       *differ.Differ
	Pipeline     *ingestion.Pipeline
	Retraction   *retraction.Engine
	Clock        clock.Clock
	Ids          idgen.Generator
	Logger       ectologger.Logger
}

type Service struct {
	integrations IntegrationStore
	jobs         JobStore
	apis         ApiCounter
	agent        agent.Agent
	license      license.Manager
	differ       *differ.Differ
	pipeline     *ingestion.Pipeline
	retraction   *retraction.Engine
	clock        clock.Clock
	ids          idgen.Generator
	logger       ectologger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{
		integrations: params.Integrations,
		jobs:         params.Jobs,
		apis:         params.Apis,
		agent:        params.Agent,
		license:      params.License,
		differ:       params.Differ,
		pipeline:     params.Pipeline,
		retraction:   params.Retraction,
		clock:        params.Clock,
		ids:          params.Ids,
		logger:       params.Logger,
	}
}

func (s *Service) getIntegration(ctx context.Context, integrationID string) (*models.Integration, error) {
	integration, err := s.integrations.Get(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "integration not found")
	}
	return integration, nil
}

// Discover previews what an ingestion run would do: every discoverable asset
// with its derived id and whether it would create or update a catalog record.
// Nothing is persisted.
func (s *Service) Discover(ctx context.Context, integrationID string, info models.AuditInfo) ([]models.DiscoveredApi, error) {
	ctx, span := tracing.StartSpan(ctx, "federation.Service.Discover")
	defer span.End()

	if err := s.license.CheckEntitlement(ctx, info.OrganizationID, license.FeatureFederation); err != nil {
		return nil, err
	}

	integration, err := s.getIntegration(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	externals, err := s.agent.ListApis(ctx, integrationID)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to list apis from integration agent")
		return nil, err
	}

	discovered := make([]models.DiscoveredApi, 0, len(externals))
	for _, external := range externals {
		preview, err := s.differ.Classify(ctx, integration.EnvironmentID, integrationID, external)
		if err != nil {
			return nil, err
		}
		discovered = append(discovered, preview)
	}

	return discovered, nil
}

// StartResult reports the outcome of StartIngest. When the agent reports no
// discoverable assets, no job is created and the status is SUCCESS.
type StartResult struct {
	JobID      string           `json:"job_id,omitempty"`
	Status     models.JobStatus `json:"status"`
	UpperLimit int64            `json:"upper_limit"`
}

// StartIngest asks the integration's agent how many assets are discoverable
// and opens a PENDING ingestion job sized accordingly.
func (s *Service) StartIngest(ctx context.Context, integrationID string, info models.AuditInfo) (StartResult, error) {
	ctx, span := tracing.StartSpan(ctx, "federation.Service.StartIngest")
	defer span.End()

	if err := s.license.CheckEntitlement(ctx, info.OrganizationID, license.FeatureFederation); err != nil {
		return StartResult{}, err
	}

	integration, err := s.getIntegration(ctx, integrationID)
	if err != nil {
		return StartResult{}, err
	}

	count, err := s.agent.CountApis(ctx, integrationID)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to count apis from integration agent")
		return StartResult{}, err
	}

	if count == 0 {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"integration_id": integrationID,
		}).Info("integration has no discoverable apis, nothing to ingest")
		return StartResult{Status: models.JobStatusSuccess}, nil
	}

	now := s.clock.Now()
	job := models.IngestionJob{
		ID:            s.ids.NewID(),
		SourceID:      integrationID,
		EnvironmentID: integration.EnvironmentID,
		InitiatorID:   info.UserID,
		Status:        models.JobStatusPending,
		UpperLimit:    count,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return StartResult{}, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":         job.ID,
		"integration_id": integrationID,
		"upper_limit":    count,
	}).Info("started ingestion job")

	return StartResult{
		JobID:      job.ID,
		Status:     job.Status,
		UpperLimit: count,
	}, nil
}

// IngestInput is one batch of discovered assets for a pending job. Done marks
// the final batch of the run.
type IngestInput struct {
	JobID string               `json:"job_id"`
	Apis  []models.ExternalApi `json:"apis"`
	Done  bool                 `json:"done"`
}

// Ingest applies one batch to the catalog. An unknown job id is a silent
// no-op so replayed or late batches do not fail. Per-item failures are
// counted in the result, never returned as errors.
func (s *Service) Ingest(ctx context.Context, in IngestInput, info models.AuditInfo) (ingestion.Result, error) {
	ctx, span := tracing.StartSpan(ctx, "federation.Service.Ingest")
	defer span.End()

	if err := s.license.CheckEntitlement(ctx, info.OrganizationID, license.FeatureFederation); err != nil {
		return ingestion.Result{}, err
	}

	job, err := s.jobs.Get(ctx, in.JobID)
	if err != nil {
		return ingestion.Result{}, err
	}
	if job == nil {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"job_id": in.JobID,
		}).Warn("ingestion job not found, dropping batch")
		return ingestion.Result{}, nil
	}

	result := s.pipeline.IngestBatch(ctx, *job, info, in.Apis)

	if in.Done {
		completed := *job
		completed.Status = models.JobStatusSuccess
		completed.UpdatedAt = s.clock.Now()
		if err := s.jobs.Update(ctx, completed); err != nil {
			return result, err
		}
	}

	return result, nil
}

// DeleteIngestedApis retracts every federated API of the integration.
func (s *Service) DeleteIngestedApis(ctx context.Context, integrationID string, info models.AuditInfo) (retraction.Result, error) {
	ctx, span := tracing.StartSpan(ctx, "federation.Service.DeleteIngestedApis")
	defer span.End()

	if err := s.license.CheckEntitlement(ctx, info.OrganizationID, license.FeatureFederation); err != nil {
		return retraction.Result{}, err
	}

	if _, err := s.getIntegration(ctx, integrationID); err != nil {
		return retraction.Result{}, err
	}

	return s.retraction.Run(ctx, integrationID, info)
}

// DeleteIntegration removes the integration itself. It fails with a conflict
// while federated APIs still reference it; those must be retracted first.
func (s *Service) DeleteIntegration(ctx context.Context, integrationID string) error {
	ctx, span := tracing.StartSpan(ctx, "federation.Service.DeleteIntegration")
	defer span.End()

	if _, err := s.getIntegration(ctx, integrationID); err != nil {
		return err
	}

	count, err := s.apis.CountByIntegration(ctx, integrationID)
	if err != nil {
		return err
	}
	if count > 0 {
		return httperror.NewHTTPError(http.StatusConflict, "integration still has federated apis")
	}

	if err := s.integrations.Delete(ctx, integrationID); err != nil {
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"integration_id": integrationID,
	}).Info("deleted integration")

	return nil
}
