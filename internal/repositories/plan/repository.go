package plan

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

// PlanRepository defines the interface for federated plan persistence
type PlanRepository interface {
	Get(ctx context.Context, id string) (*models.FederatedPlan, error)
	Create(ctx context.Context, plan models.FederatedPlan) error
	Update(ctx context.Context, plan models.FederatedPlan) error
	FindByApi(ctx context.Context, apiID string) ([]models.FederatedPlan, error)
	DeleteByApi(ctx context.Context, apiID string) error
}

// Repository implements PlanRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new plan repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "federated_plans"

var columns = []string{
	"id", "api_id", "provider_id", "name", "description", "security",
	"validation", "status", "created_at", "updated_at",
}

// Get gets a federated plan by its derived id. Returns nil when no record
// exists.
func (r *Repository) Get(ctx context.Context, id string) (*models.FederatedPlan, error) {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var plan models.FederatedPlan
	err := r.db.GetContext(ctx, &plan, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get federated plan")
		return nil, fmt.Errorf("failed to get federated plan: %w", err)
	}

	return &plan, nil
}

// Create inserts a new federated plan. A conflict on the derived id means a
// redelivered batch already inserted the row, so the newer payload wins.
func (r *Repository) Create(ctx context.Context, plan models.FederatedPlan) error {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.Create")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).Cols(columns...).Values(
		plan.ID, plan.ApiID, plan.ProviderID, plan.Name, plan.Description,
		string(plan.Security), string(plan.Validation), string(plan.Status),
		plan.CreatedAt, plan.UpdatedAt,
	)

	ub := ib.OnConflict("id")
	ub.Set(
		ub.Assign("name", database.Excluded("name")),
		ub.Assign("description", database.Excluded("description")),
		ub.Assign("security", database.Excluded("security")),
		ub.Assign("validation", database.Excluded("validation")),
		ub.Assign("status", database.Excluded("status")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := ib.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create federated plan")
		return fmt.Errorf("failed to create federated plan: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":     plan.ID,
		"api_id": plan.ApiID,
	}).Info("created federated plan")

	return nil
}

// Update replaces the mutable fields of a federated plan
func (r *Repository) Update(ctx context.Context, plan models.FederatedPlan) error {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("name", plan.Name),
		sb.Assign("description", plan.Description),
		sb.Assign("security", string(plan.Security)),
		sb.Assign("validation", string(plan.Validation)),
		sb.Assign("status", string(plan.Status)),
		sb.Assign("updated_at", plan.UpdatedAt),
	)
	sb.Where(sb.Equal("id", plan.ID))

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update federated plan")
		return fmt.Errorf("failed to update federated plan: %w", err)
	}

	return nil
}

// FindByApi lists the plans of a federated API
func (r *Repository) FindByApi(ctx context.Context, apiID string) ([]models.FederatedPlan, error) {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.FindByApi")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("api_id", apiID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var plans []models.FederatedPlan
	err := r.db.SelectContext(ctx, &plans, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list federated plans")
		return nil, fmt.Errorf("failed to list federated plans: %w", err)
	}

	return plans, nil
}

// DeleteByApi removes every plan of a federated API
func (r *Repository) DeleteByApi(ctx context.Context, apiID string) error {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.DeleteByApi")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("api_id", apiID))

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete federated plans")
		return fmt.Errorf("failed to delete federated plans: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"api_id":        apiID,
		"rows_affected": rowsAffected,
	}).Info("deleted federated plans")

	return nil
}
