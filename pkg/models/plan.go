package models

import "time"

type PlanValidation string

const (
	PlanValidationManual PlanValidation = "MANUAL"
	PlanValidationAuto   PlanValidation = "AUTO"
)

type PlanStatus string

const (
	PlanStatusStaging    PlanStatus = "STAGING"
	PlanStatusPublished  PlanStatus = "PUBLISHED"
	PlanStatusDeprecated PlanStatus = "DEPRECATED"
	PlanStatusClosed     PlanStatus = "CLOSED"
)

// FederatedPlan is a consumption plan of a federated API. Its ID is the API id
// concatenated with the provider's plan id.
type FederatedPlan struct {
	ID          string           `db:"id" json:"id"`
	ApiID       string           `db:"api_id" json:"api_id"`
	ProviderID  string           `db:"provider_id" json:"provider_id"`
	Name        string           `db:"name" json:"name" validate:"required"`
	Description string           `db:"description" json:"description"`
	Security    PlanSecurityType `db:"security" json:"security"`
	Validation  PlanValidation   `db:"validation" json:"validation"`
	Status      PlanStatus       `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// NewFederatedPlan builds the plan record for an external plan. Federated
// plans require manual validation and are published immediately.
func NewFederatedPlan(id, apiID string, external ExternalPlan, now time.Time) FederatedPlan {
	return FederatedPlan{
		ID:          id,
		ApiID:       apiID,
		ProviderID:  external.ID,
		Name:        external.Name,
		Description: external.Description,
		Security:    external.SecurityType,
		Validation:  PlanValidationManual,
		Status:      PlanStatusPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyExternal merges a re-discovered external plan onto the existing record.
func (p FederatedPlan) ApplyExternal(external ExternalPlan, now time.Time) FederatedPlan {
	updated := p
	updated.Name = external.Name
	updated.Description = external.Description
	updated.Security = external.SecurityType
	updated.UpdatedAt = now
	return updated
}
