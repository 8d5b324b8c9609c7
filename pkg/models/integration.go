package models

import "time"

// Integration is a registered connection to an external API provider.
type Integration struct {
	ID            string    `db:"id" json:"id"`
	EnvironmentID string    `db:"environment_id" json:"environment_id"`
	Name          string    `db:"name" json:"name"`
	Provider      string    `db:"provider" json:"provider"`
	Description   string    `db:"description" json:"description"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type DiscoveredApiState string

const (
	DiscoveredApiStateNew    DiscoveredApiState = "NEW"
	DiscoveredApiStateUpdate DiscoveredApiState = "UPDATE"
)

// DiscoveredApi is one preview row of a discovery run: the derived catalog id
// plus whether ingestion would create or update the record.
type DiscoveredApi struct {
	ID    string             `json:"id"`
	Name  string             `json:"name"`
	State DiscoveredApiState `json:"state"`
}
