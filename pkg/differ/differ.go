// Package differ classifies discovered external assets against the catalog
// for discovery previews.
package differ

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ApiLookup resolves a federated API by its derived id. Returns nil without
// error when no record exists.
type ApiLookup interface {
	Get(ctx context.Context, id string) (*models.FederatedApi, error)
}

type Differ struct {
	apis   ApiLookup
	logger ectologger.Logger
}

func New(apis ApiLookup, logger ectologger.Logger) *Differ {
	return &Differ{
		apis:   apis,
		logger: logger,
	}
}

// Classify previews what ingesting the asset would do. Any existing record
// under the derived id yields UPDATE, even when the content is identical;
// ingestion always rewrites mutable fields, so the preview reflects that.
func (d *Differ) Classify(ctx context.Context, environmentID, integrationID string, external models.ExternalApi) (models.DiscoveredApi, error) {
	ctx, span := tracing.StartSpan(ctx, "Differ.Classify")
	defer span.End()

	id := identity.ApiID(environmentID, integrationID, external.UniqueID)

	existing, err := d.apis.Get(ctx, id)
	if err != nil {
		d.logger.WithContext(ctx).WithError(err).Error("failed to look up federated api for preview")
		return models.DiscoveredApi{}, err
	}

	state := models.DiscoveredApiStateNew
	if existing != nil {
		state = models.DiscoveredApiStateUpdate
	}

	return models.DiscoveredApi{
		ID:    id,
		Name:  external.Name,
		State: state,
	}, nil
}
