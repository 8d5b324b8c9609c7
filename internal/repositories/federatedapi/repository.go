package federatedapi

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

// FederatedApiRepository defines the interface for federated API persistence
type FederatedApiRepository interface {
	Get(ctx context.Context, id string) (*models.FederatedApi, error)
	Create(ctx context.Context, api models.FederatedApi) error
	Update(ctx context.Context, api models.FederatedApi) error
	Delete(ctx context.Context, id string) error
	FindByIntegration(ctx context.Context, integrationID string) ([]models.FederatedApi, error)
	CountByIntegration(ctx context.Context, integrationID string) (int64, error)
}

// Repository implements FederatedApiRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new federated API repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "federated_apis"

var columns = []string{
	"id", "environment_id", "integration_id", "provider_id", "name",
	"description", "version", "connection_details", "lifecycle_state",
	"visibility", "picture", "background", "categories", "groups", "labels",
	"created_at", "updated_at",
}

type row struct {
	ID                string                             `db:"id"`
	EnvironmentID     string                             `db:"environment_id"`
	IntegrationID     string                             `db:"integration_id"`
	ProviderID        string                             `db:"provider_id"`
	Name              string                             `db:"name"`
	Description       string                             `db:"description"`
	Version           string                             `db:"version"`
	ConnectionDetails database.JSONB[map[string]string]  `db:"connection_details"`
	LifecycleState    string                             `db:"lifecycle_state"`
	Visibility        string                             `db:"visibility"`
	Picture           string                             `db:"picture"`
	Background        string                             `db:"background"`
	Categories        database.JSONB[[]string]           `db:"categories"`
	Groups            database.JSONB[[]string]           `db:"groups"`
	Labels            database.JSONB[[]string]           `db:"labels"`
	CreatedAt         sql.NullTime                       `db:"created_at"`
	UpdatedAt         sql.NullTime                       `db:"updated_at"`
}

func (r row) toModel() models.FederatedApi {
	api := models.FederatedApi{
		ID:                r.ID,
		EnvironmentID:     r.EnvironmentID,
		IntegrationID:     r.IntegrationID,
		ProviderID:        r.ProviderID,
		Name:              r.Name,
		Description:       r.Description,
		Version:           r.Version,
		ConnectionDetails: r.ConnectionDetails.Data,
		LifecycleState:    models.ApiLifecycleState(r.LifecycleState),
		Visibility:        models.ApiVisibility(r.Visibility),
		Picture:           r.Picture,
		Background:        r.Background,
		Categories:        r.Categories.Data,
		Groups:            r.Groups.Data,
		Labels:            r.Labels.Data,
	}
	if r.CreatedAt.Valid {
		api.CreatedAt = r.CreatedAt.Time
	}
	if r.UpdatedAt.Valid {
		api.UpdatedAt = r.UpdatedAt.Time
	}
	return api
}

func values(api models.FederatedApi) []any {
	return []any{
		api.ID, api.EnvironmentID, api.IntegrationID, api.ProviderID, api.Name,
		api.Description, api.Version, database.JSONB[map[string]string]{Data: api.ConnectionDetails},
		string(api.LifecycleState), string(api.Visibility), api.Picture, api.Background,
		database.JSONB[[]string]{Data: api.Categories}, database.JSONB[[]string]{Data: api.Groups},
		database.JSONB[[]string]{Data: api.Labels}, api.CreatedAt, api.UpdatedAt,
	}
}

// Get gets a federated API by its derived id. Returns nil when no record
// exists.
func (r *Repository) Get(ctx context.Context, id string) (*models.FederatedApi, error) {
	ctx, span := tracing.StartSpan(ctx, "FederatedApiRepository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var record row
	err := r.db.GetContext(ctx, &record, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get federated api")
		return nil, fmt.Errorf("failed to get federated api: %w", err)
	}

	api := record.toModel()
	return &api, nil
}

// Create inserts a new federated API. Agent batches are delivered at least
// once, so a conflict on the derived id overwrites the row with the newer
// payload instead of failing.
func (r *Repository) Create(ctx context.Context, api models.FederatedApi) error {
	ctx, span := tracing.StartSpan(ctx, "FederatedApiRepository.Create")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName).Cols(columns...).Values(values(api)...)

	ub := ib.OnConflict("id")
	ub.Set(
		ub.Assign("name", database.Excluded("name")),
		ub.Assign("description", database.Excluded("description")),
		ub.Assign("version", database.Excluded("version")),
		ub.Assign("connection_details", database.Excluded("connection_details")),
		ub.Assign("lifecycle_state", database.Excluded("lifecycle_state")),
		ub.Assign("visibility", database.Excluded("visibility")),
		ub.Assign("picture", database.Excluded("picture")),
		ub.Assign("background", database.Excluded("background")),
		ub.Assign("categories", database.Excluded("categories")),
		ub.Assign("groups", database.Excluded("groups")),
		ub.Assign("labels", database.Excluded("labels")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create federated api")
		return fmt.Errorf("failed to create federated api: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":             api.ID,
		"integration_id": api.IntegrationID,
	}).Info("created federated api")

	return nil
}

// Update replaces the mutable fields of a federated API
func (r *Repository) Update(ctx context.Context, api models.FederatedApi) error {
	ctx, span := tracing.StartSpan(ctx, "FederatedApiRepository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("name", api.Name),
		sb.Assign("description", api.Description),
		sb.Assign("version", api.Version),
		sb.Assign("connection_details", database.JSONB[map[string]string]{Data: api.ConnectionDetails}),
		sb.Assign("lifecycle_state", string(api.LifecycleState)),
		sb.Assign("visibility", string(api.Visibility)),
		sb.Assign("picture", api.Picture),
		sb.Assign("background", api.Background),
		sb.Assign("categories", database.JSONB[[]string]{Data: api.Categories}),
		sb.Assign("groups", database.JSONB[[]string]{Data: api.Groups}),
		sb.Assign("labels", database.JSONB[[]string]{Data: api.Labels}),
		sb.Assign("updated_at", api.UpdatedAt),
	)
	sb.Where(sb.Equal("id", api.ID))

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update federated api")
		return fmt.Errorf("failed to update federated api: %w", err)
	}

	return nil
}

// Delete removes a federated API
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "FederatedApiRepository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete federated api")
		return fmt.Errorf("failed to delete federated api: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"rows_affected": rowsAffected,
	}).Info("deleted federated api")

	return nil
}

// FindByIntegration lists every federated API owned by an integration
func (r *Repository) FindByIntegration(ctx context.Context, integrationID string) ([]models.FederatedApi, error) {
	ctx, span := tracing.StartSpan(ctx, "FederatedApiRepository.FindByIntegration")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("integration_id", integrationID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var records []row
	err := r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list federated apis")
		return nil, fmt.Errorf("failed to list federated apis: %w", err)
	}

	apis := make([]models.FederatedApi, 0, len(records))
	for _, record := range records {
		apis = append(apis, record.toModel())
	}

	return apis, nil
}

// CountByIntegration counts the federated APIs still owned by an integration
func (r *Repository) CountByIntegration(ctx context.Context, integrationID string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "FederatedApiRepository.CountByIntegration")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(tableName)
	sb.Where(sb.Equal("integration_id", integrationID))

	query, args := sb.Build()

	var count int64
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count federated apis")
		return 0, fmt.Errorf("failed to count federated apis: %w", err)
	}

	return count, nil
}
