package models

// ExternalApi is an API asset as reported by an integration provider. The
// UniqueID is the provider's stable identifier and is the only field trusted
// for identity.
type ExternalApi struct {
	UniqueID          string            `json:"unique_id"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Version           string            `json:"version"`
	ConnectionDetails map[string]string `json:"connection_details,omitempty"`
	Plans             []ExternalPlan    `json:"plans,omitempty"`
	Pages             []ExternalPage    `json:"pages,omitempty"`
}

// ExternalPlan is a consumption plan attached to an external API asset.
type ExternalPlan struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	SecurityType    PlanSecurityType `json:"security_type"`
	Characteristics []string         `json:"characteristics,omitempty"`
}

type PlanSecurityType string

const (
	PlanSecurityApiKey  PlanSecurityType = "API_KEY"
	PlanSecurityKeyLess PlanSecurityType = "KEY_LESS"
	PlanSecurityOAuth2  PlanSecurityType = "OAUTH2"
	PlanSecurityJWT     PlanSecurityType = "JWT"
)

// ExternalPage is a documentation artifact attached to an external API asset.
type ExternalPage struct {
	Type    PageType `json:"type"`
	Content string   `json:"content"`
}
