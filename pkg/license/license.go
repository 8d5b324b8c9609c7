// Package license gates platform features per organization.
package license

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

type Feature string

const FeatureFederation Feature = "federation"

// Manager answers entitlement checks for organizations.
type Manager interface {
	// CheckEntitlement returns a 403 error when the organization's license
	// does not include the feature. Callers must run this before any side
	// effect.
	CheckEntitlement(ctx context.Context, organizationID string, feature Feature) error
}

// StaticManager grants a feature to a fixed set of organizations. An empty
// set grants the feature to everyone, for development setups.
type StaticManager struct {
	organizations map[string]bool
}

func NewStaticManager(organizationIDs []string) *StaticManager {
	orgs := make(map[string]bool, len(organizationIDs))
	for _, id := range organizationIDs {
		if id != "" {
			orgs[id] = true
		}
	}
	return &StaticManager{organizations: orgs}
}

func (m *StaticManager) CheckEntitlement(ctx context.Context, organizationID string, feature Feature) error {
	if len(m.organizations) == 0 {
		return nil
	}
	if m.organizations[organizationID] {
		return nil
	}
	return httperror.NewHTTPError(http.StatusForbidden, "feature is not included in the organization's license")
}
