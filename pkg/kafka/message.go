package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// BatchMessage is one batch of discovered assets pushed by an integration
// agent. Done marks the final batch of the run.
type BatchMessage struct {
	JobID          string               `json:"job_id"`
	OrganizationID string               `json:"organization_id"`
	EnvironmentID  string               `json:"environment_id"`
	UserID         string               `json:"user_id"`
	Apis           []models.ExternalApi `json:"apis"`
	Done           bool                 `json:"done"`
}

// ParseBatch parses the message value as an agent batch
func (m *IncomingMessage) ParseBatch() (*BatchMessage, error) {
	var batch BatchMessage
	if err := json.Unmarshal(m.Value, &batch); err != nil {
		return nil, err
	}
	if batch.OrganizationID == "" {
		batch.OrganizationID = m.Headers["organization_id"]
	}
	if batch.EnvironmentID == "" {
		batch.EnvironmentID = m.Headers["environment_id"]
	}
	if batch.UserID == "" {
		batch.UserID = m.Headers["user_id"]
	}
	return &batch, nil
}
