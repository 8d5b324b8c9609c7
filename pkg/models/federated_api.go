package models

import "time"

// DefaultApiVersion is applied when the provider reports no version.
const DefaultApiVersion = "0.0.0"

type ApiLifecycleState string

const (
	ApiLifecycleCreated     ApiLifecycleState = "CREATED"
	ApiLifecyclePublished   ApiLifecycleState = "PUBLISHED"
	ApiLifecycleUnpublished ApiLifecycleState = "UNPUBLISHED"
	ApiLifecycleDeprecated  ApiLifecycleState = "DEPRECATED"
	ApiLifecycleArchived    ApiLifecycleState = "ARCHIVED"
)

type ApiVisibility string

const (
	ApiVisibilityPublic  ApiVisibility = "PUBLIC"
	ApiVisibilityPrivate ApiVisibility = "PRIVATE"
)

// FederatedApi is an API record of federated origin in the catalog. Its ID is
// derived from the environment, the owning integration and the provider's
// unique id, so re-ingesting the same asset always lands on the same row.
type FederatedApi struct {
	ID                string            `db:"id" json:"id"`
	EnvironmentID     string            `db:"environment_id" json:"environment_id" validate:"required"`
	IntegrationID     string            `db:"integration_id" json:"integration_id" validate:"required"`
	ProviderID        string            `db:"provider_id" json:"provider_id"`
	Name              string            `db:"name" json:"name" validate:"required"`
	Description       string            `db:"description" json:"description"`
	Version           string            `db:"version" json:"version" validate:"required"`
	ConnectionDetails map[string]string `db:"-" json:"connection_details,omitempty"`
	LifecycleState    ApiLifecycleState `db:"lifecycle_state" json:"lifecycle_state"`
	Visibility        ApiVisibility     `db:"visibility" json:"visibility"`
	Picture           string            `db:"picture" json:"picture,omitempty"`
	Background        string            `db:"background" json:"background,omitempty"`
	Categories        []string          `db:"-" json:"categories,omitempty"`
	Groups            []string          `db:"-" json:"groups,omitempty"`
	Labels            []string          `db:"-" json:"labels,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// NewFederatedApi builds the catalog record for a newly discovered external
// asset. Missing versions fall back to DefaultApiVersion.
func NewFederatedApi(id, environmentID, integrationID string, external ExternalApi, now time.Time) FederatedApi {
	version := external.Version
	if version == "" {
		version = DefaultApiVersion
	}

	return FederatedApi{
		ID:                id,
		EnvironmentID:     environmentID,
		IntegrationID:     integrationID,
		ProviderID:        external.UniqueID,
		Name:              external.Name,
		Description:       external.Description,
		Version:           version,
		ConnectionDetails: external.ConnectionDetails,
		LifecycleState:    ApiLifecycleCreated,
		Visibility:        ApiVisibilityPrivate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ApplyExternal merges a re-discovered external asset onto the existing
// record. Operator-managed fields (picture, background, categories, groups,
// labels, visibility, lifecycle state) and created-at are preserved.
func (a FederatedApi) ApplyExternal(external ExternalApi, now time.Time) FederatedApi {
	updated := a
	updated.Name = external.Name
	updated.Description = external.Description
	if external.Version != "" {
		updated.Version = external.Version
	} else {
		updated.Version = DefaultApiVersion
	}
	updated.ConnectionDetails = external.ConnectionDetails
	updated.UpdatedAt = now
	return updated
}
