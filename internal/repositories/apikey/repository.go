package apikey

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ApiKeyRepository defines the interface for API key persistence
type ApiKeyRepository interface {
	RevokeBySubscription(ctx context.Context, subscriptionID string, at time.Time) error
}

// Repository implements ApiKeyRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new API key repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "api_keys"

// RevokeBySubscription marks every key issued for a subscription as revoked.
// Already revoked keys keep their original revocation time.
func (r *Repository) RevokeBySubscription(ctx context.Context, subscriptionID string, at time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "ApiKeyRepository.RevokeBySubscription")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("revoked", true),
		sb.Assign("revoked_at", at),
	)
	sb.Where(
		sb.Equal("subscription_id", subscriptionID),
		sb.Equal("revoked", false),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to revoke api keys")
		return fmt.Errorf("failed to revoke api keys: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"subscription_id": subscriptionID,
		"rows_affected":   rowsAffected,
	}).Info("revoked api keys")

	return nil
}
