package integration

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

// IntegrationRepository defines the interface for integration persistence
type IntegrationRepository interface {
	Get(ctx context.Context, id string) (*models.Integration, error)
	Delete(ctx context.Context, id string) error
}

// Repository implements IntegrationRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new integration repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "integrations"

var columns = []string{
	"id", "environment_id", "name", "provider", "description",
	"created_at", "updated_at",
}

// Get gets an integration by id. Returns nil when no record exists.
func (r *Repository) Get(ctx context.Context, id string) (*models.Integration, error) {
	ctx, span := tracing.StartSpan(ctx, "IntegrationRepository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var integration models.Integration
	err := r.db.GetContext(ctx, &integration, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get integration")
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}

	return &integration, nil
}

// Delete removes an integration
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "IntegrationRepository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete integration")
		return fmt.Errorf("failed to delete integration: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"rows_affected": rowsAffected,
	}).Info("deleted integration")

	return nil
}
