package models

import "time"

type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusError   JobStatus = "ERROR"
)

// IngestionJob tracks one ingestion run for an integration. SourceID is the
// integration the assets come from, UpperLimit the count the agent reported
// when the run started.
type IngestionJob struct {
	ID            string    `db:"id" json:"id"`
	SourceID      string    `db:"source_id" json:"source_id"`
	EnvironmentID string    `db:"environment_id" json:"environment_id"`
	InitiatorID   string    `db:"initiator_id" json:"initiator_id"`
	Status        JobStatus `db:"status" json:"status"`
	UpperLimit    int64     `db:"upper_limit" json:"upper_limit"`
	ErrorMessage  string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
