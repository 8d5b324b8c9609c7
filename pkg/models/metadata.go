package models

import "time"

// Metadata is a key/value annotation on a catalog resource.
type Metadata struct {
	Key           string    `db:"key" json:"key"`
	ReferenceType string    `db:"reference_type" json:"reference_type"`
	ReferenceID   string    `db:"reference_id" json:"reference_id"`
	Name          string    `db:"name" json:"name"`
	Value         string    `db:"value" json:"value"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
