package audit

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// AuditRepository defines the interface for audit trail persistence
type AuditRepository interface {
	Create(ctx context.Context, entry models.AuditEntry) error
}

// Repository implements AuditRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new audit repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "audit_logs"

var columns = []string{
	"id", "organization_id", "environment_id", "reference_type",
	"reference_id", "user_id", "event", "properties", "created_at",
}

// Create appends an entry to the audit trail. Entries are never updated or
// deleted.
func (r *Repository) Create(ctx context.Context, entry models.AuditEntry) error {
	ctx, span := tracing.StartSpan(ctx, "AuditRepository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		entry.ID, entry.OrganizationID, entry.EnvironmentID,
		entry.ReferenceType, entry.ReferenceID, entry.User, string(entry.Event),
		database.JSONB[map[string]string]{Data: entry.Properties},
		entry.CreatedAt,
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create audit entry")
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}
