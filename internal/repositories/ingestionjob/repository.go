package ingestionjob

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// IngestionJobRepository defines the interface for ingestion job persistence
type IngestionJobRepository interface {
	Get(ctx context.Context, id string) (*models.IngestionJob, error)
	Create(ctx context.Context, job models.IngestionJob) error
	Update(ctx context.Context, job models.IngestionJob) error
}

// Repository implements IngestionJobRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new ingestion job repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "ingestion_jobs"

var columns = []string{
	"id", "source_id", "environment_id", "initiator_id", "status",
	"upper_limit", "error_message", "created_at", "updated_at",
}

// Get gets an ingestion job by id. Returns nil when no record exists.
func (r *Repository) Get(ctx context.Context, id string) (*models.IngestionJob, error) {
	ctx, span := tracing.StartSpan(ctx, "IngestionJobRepository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var job models.IngestionJob
	err := r.db.GetContext(ctx, &job, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get ingestion job")
		return nil, fmt.Errorf("failed to get ingestion job: %w", err)
	}

	return &job, nil
}

// Create inserts a new ingestion job
func (r *Repository) Create(ctx context.Context, job models.IngestionJob) error {
	ctx, span := tracing.StartSpan(ctx, "IngestionJobRepository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		job.ID, job.SourceID, job.EnvironmentID, job.InitiatorID,
		string(job.Status), job.UpperLimit, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt,
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create ingestion job")
		return fmt.Errorf("failed to create ingestion job: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        job.ID,
		"source_id": job.SourceID,
	}).Info("created ingestion job")

	return nil
}

// Update replaces the status fields of an ingestion job
func (r *Repository) Update(ctx context.Context, job models.IngestionJob) error {
	ctx, span := tracing.StartSpan(ctx, "IngestionJobRepository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("status", string(job.Status)),
		sb.Assign("error_message", job.ErrorMessage),
		sb.Assign("updated_at", job.UpdatedAt),
	)
	sb.Where(sb.Equal("id", job.ID))

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update ingestion job")
		return fmt.Errorf("failed to update ingestion job: %w", err)
	}

	return nil
}
