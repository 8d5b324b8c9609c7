package subscription

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	FindByApi(ctx context.Context, apiID string) ([]models.Subscription, error)
	Update(ctx context.Context, subscription models.Subscription) error
	Delete(ctx context.Context, id string) error
}

// Repository implements SubscriptionRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new subscription repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "subscriptions"

var columns = []string{
	"id", "api_id", "plan_id", "application_id", "status", "closed_at",
	"created_at", "updated_at",
}

// FindByApi lists the subscriptions of a federated API, active or not
func (r *Repository) FindByApi(ctx context.Context, apiID string) ([]models.Subscription, error) {
	ctx, span := tracing.StartSpan(ctx, "SubscriptionRepository.FindByApi")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("api_id", apiID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var subscriptions []models.Subscription
	err := r.db.SelectContext(ctx, &subscriptions, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list subscriptions")
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subscriptions, nil
}

// Update replaces the mutable fields of a subscription
func (r *Repository) Update(ctx context.Context, subscription models.Subscription) error {
	ctx, span := tracing.StartSpan(ctx, "SubscriptionRepository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("status", string(subscription.Status)),
		sb.Assign("closed_at", subscription.ClosedAt),
		sb.Assign("updated_at", subscription.UpdatedAt),
	)
	sb.Where(sb.Equal("id", subscription.ID))

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update subscription")
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	return nil
}

// Delete removes a subscription
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "SubscriptionRepository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete subscription")
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	return nil
}
