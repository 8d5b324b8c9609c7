package metadata

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// MetadataRepository defines the interface for resource metadata persistence
type MetadataRepository interface {
	DeleteByReference(ctx context.Context, referenceType, referenceID string) error
}

// Repository implements MetadataRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new metadata repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "api_metadata"

// DeleteByReference removes every metadata entry attached to a resource
func (r *Repository) DeleteByReference(ctx context.Context, referenceType, referenceID string) error {
	ctx, span := tracing.StartSpan(ctx, "MetadataRepository.DeleteByReference")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(
		sb.Equal("reference_type", referenceType),
		sb.Equal("reference_id", referenceID),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete metadata")
		return fmt.Errorf("failed to delete metadata: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"reference_id":  referenceID,
		"rows_affected": rowsAffected,
	}).Info("deleted metadata")

	return nil
}
