// Package identity derives catalog ids for federated resources. Derivation is
// pure concatenation so the same external asset always maps to the same
// record, across calls and across process runs.
package identity

// ApiID derives the catalog id of a federated API from the environment it is
// ingested into, the integration that discovered it and the provider's unique
// id for the asset.
func ApiID(environmentID, integrationID, externalUniqueID string) string {
	return environmentID + integrationID + externalUniqueID
}

// PlanID derives the catalog id of a federated plan from its API's id and the
// provider's plan id.
func PlanID(apiID, externalPlanID string) string {
	return apiID + externalPlanID
}
