package page

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

// PageRepository defines the interface for documentation page persistence
type PageRepository interface {
	GetByReferenceAndType(ctx context.Context, referenceID string, pageType models.PageType) (*models.DocumentationPage, error)
	Create(ctx context.Context, page models.DocumentationPage) error
	Update(ctx context.Context, page models.DocumentationPage) error
	FindByReference(ctx context.Context, referenceID string) ([]models.DocumentationPage, error)
	DeleteByReference(ctx context.Context, referenceID string) error
}

// Repository implements PageRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new page repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "documentation_pages"

var columns = []string{
	"id", "reference_id", "name", "type", "content", "visibility",
	"homepage", "published", "configuration", "created_at", "updated_at",
}

type row struct {
	ID            string                            `db:"id"`
	ReferenceID   string                            `db:"reference_id"`
	Name          string                            `db:"name"`
	Type          string                            `db:"type"`
	Content       string                            `db:"content"`
	Visibility    string                            `db:"visibility"`
	Homepage      bool                              `db:"homepage"`
	Published     bool                              `db:"published"`
	Configuration database.JSONB[map[string]string] `db:"configuration"`
	CreatedAt     sql.NullTime                      `db:"created_at"`
	UpdatedAt     sql.NullTime                      `db:"updated_at"`
}

func (r row) toModel() models.DocumentationPage {
	page := models.DocumentationPage{
		ID:            r.ID,
		ReferenceID:   r.ReferenceID,
		Name:          r.Name,
		Type:          models.PageType(r.Type),
		Content:       r.Content,
		Visibility:    models.PageVisibility(r.Visibility),
		Homepage:      r.Homepage,
		Published:     r.Published,
		Configuration: r.Configuration.Data,
	}
	if r.CreatedAt.Valid {
		page.CreatedAt = r.CreatedAt.Time
	}
	if r.UpdatedAt.Valid {
		page.UpdatedAt = r.UpdatedAt.Time
	}
	return page
}

// GetByReferenceAndType gets the page of one type attached to a resource.
// Ingestion maintains at most one page per type per API. Returns nil when no
// record exists.
func (r *Repository) GetByReferenceAndType(ctx context.Context, referenceID string, pageType models.PageType) (*models.DocumentationPage, error) {
	ctx, span := tracing.StartSpan(ctx, "PageRepository.GetByReferenceAndType")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("reference_id", referenceID),
		sb.Equal("type", string(pageType)),
	)
	sb.Limit(1)

	query, args := sb.Build()

	var record row
	err := r.db.GetContext(ctx, &record, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get documentation page")
		return nil, fmt.Errorf("failed to get documentation page: %w", err)
	}

	page := record.toModel()
	return &page, nil
}

// Create inserts a new documentation page
func (r *Repository) Create(ctx context.Context, page models.DocumentationPage) error {
	ctx, span := tracing.StartSpan(ctx, "PageRepository.Create")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(
		page.ID, page.ReferenceID, page.Name, string(page.Type), page.Content,
		string(page.Visibility), page.Homepage, page.Published,
		database.JSONB[map[string]string]{Data: page.Configuration},
		page.CreatedAt, page.UpdatedAt,
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create documentation page")
		return fmt.Errorf("failed to create documentation page: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":           page.ID,
		"reference_id": page.ReferenceID,
	}).Info("created documentation page")

	return nil
}

// Update replaces the mutable fields of a documentation page
func (r *Repository) Update(ctx context.Context, page models.DocumentationPage) error {
	ctx, span := tracing.StartSpan(ctx, "PageRepository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("name", page.Name),
		sb.Assign("content", page.Content),
		sb.Assign("visibility", string(page.Visibility)),
		sb.Assign("homepage", page.Homepage),
		sb.Assign("published", page.Published),
		sb.Assign("configuration", database.JSONB[map[string]string]{Data: page.Configuration}),
		sb.Assign("updated_at", page.UpdatedAt),
	)
	sb.Where(sb.Equal("id", page.ID))

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update documentation page")
		return fmt.Errorf("failed to update documentation page: %w", err)
	}

	return nil
}

// FindByReference lists the pages attached to a resource
func (r *Repository) FindByReference(ctx context.Context, referenceID string) ([]models.DocumentationPage, error) {
	ctx, span := tracing.StartSpan(ctx, "PageRepository.FindByReference")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("reference_id", referenceID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var records []row
	err := r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list documentation pages")
		return nil, fmt.Errorf("failed to list documentation pages: %w", err)
	}

	pages := make([]models.DocumentationPage, 0, len(records))
	for _, record := range records {
		pages = append(pages, record.toModel())
	}

	return pages, nil
}

// DeleteByReference removes every page attached to a resource
func (r *Repository) DeleteByReference(ctx context.Context, referenceID string) error {
	ctx, span := tracing.StartSpan(ctx, "PageRepository.DeleteByReference")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("reference_id", referenceID))

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete documentation pages")
		return fmt.Errorf("failed to delete documentation pages: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"reference_id":  referenceID,
		"rows_affected": rowsAffected,
	}).Info("deleted documentation pages")

	return nil
}
