package membership

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// MembershipRepository defines the interface for membership persistence
type MembershipRepository interface {
	Create(ctx context.Context, membership models.Membership) error
	DeleteByReference(ctx context.Context, referenceType, referenceID string) error
}

// Repository implements MembershipRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new membership repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "memberships"

var columns = []string{
	"id", "member_id", "member_type", "reference_type", "reference_id",
	"role_id", "source", "created_at", "updated_at",
}

// Create inserts a new membership
func (r *Repository) Create(ctx context.Context, membership models.Membership) error {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		membership.ID, membership.MemberID, membership.MemberType,
		membership.ReferenceType, membership.ReferenceID, membership.RoleID,
		membership.Source, membership.CreatedAt, membership.UpdatedAt,
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create membership")
		return fmt.Errorf("failed to create membership: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":           membership.ID,
		"reference_id": membership.ReferenceID,
	}).Info("created membership")

	return nil
}

// DeleteByReference removes every membership attached to a resource
func (r *Repository) DeleteByReference(ctx context.Context, referenceType, referenceID string) error {
	ctx, span := tracing.StartSpan(ctx, "MembershipRepository.DeleteByReference")
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
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete memberships")
		return fmt.Errorf("failed to delete memberships: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"reference_id":  referenceID,
		"rows_affected": rowsAffected,
	}).Info("deleted memberships")

	return nil
}
