package federation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
)

func batchMessage(t *testing.T, batch kafka.BatchMessage) *kafka.IncomingMessage {
	t.Helper()
	value, err := json.Marshal(batch)
	require.NoError(t, err)
	return &kafka.IncomingMessage{Value: value, Headers: map[string]string{}}
}

func TestIntake_HandleMessage(t *testing.T) {
	ctx := context.Background()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	t.Run("applies a batch to its job", func(t *testing.T) {
		f := newFixture(t, nil)
		intake := NewIntake(f.service, logger)
		require.NoError(t, f.jobs.Create(ctx, models.IngestionJob{
			ID:            "job-1",
			SourceID:      "integration-id",
			EnvironmentID: "environment-id",
			Status:        models.JobStatusPending,
		}))

		msg := batchMessage(t, kafka.BatchMessage{
			JobID:          "job-1",
			OrganizationID: "org-id",
			EnvironmentID:  "environment-id",
			UserID:         "user-id",
			Apis:           []models.ExternalApi{{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"}},
			Done:           true,
		})

		require.NoError(t, intake.HandleMessage(ctx, msg))

		assert.Len(t, f.apis.All(), 1)
		job, err := f.jobs.Get(ctx, "job-1")
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, models.JobStatusSuccess, job.Status)
	})

	t.Run("actor identity falls back to headers", func(t *testing.T) {
		f := newFixture(t, nil)
		intake := NewIntake(f.service, logger)
		require.NoError(t, f.jobs.Create(ctx, models.IngestionJob{
			ID:     "job-1",
			Status: models.JobStatusPending,
		}))

		msg := batchMessage(t, kafka.BatchMessage{
			JobID: "job-1",
			Apis:  []models.ExternalApi{{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"}},
		})
		msg.Headers["organization_id"] = "org-id"
		msg.Headers["environment_id"] = "environment-id"
		msg.Headers["user_id"] = "user-id"

		require.NoError(t, intake.HandleMessage(ctx, msg))
		assert.Len(t, f.apis.All(), 1)
	})

	t.Run("drops malformed payloads", func(t *testing.T) {
		f := newFixture(t, nil)
		intake := NewIntake(f.service, logger)

		msg := &kafka.IncomingMessage{Value: []byte("not json"), Headers: map[string]string{}}

		require.NoError(t, intake.HandleMessage(ctx, msg))
		assert.Empty(t, f.apis.All())
	})

	t.Run("drops batches without a job id", func(t *testing.T) {
		f := newFixture(t, nil)
		intake := NewIntake(f.service, logger)

		msg := batchMessage(t, kafka.BatchMessage{
			OrganizationID: "org-id",
			Apis:           []models.ExternalApi{{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"}},
		})

		require.NoError(t, intake.HandleMessage(ctx, msg))
		assert.Empty(t, f.apis.All())
	})

	t.Run("drops unlicensed batches instead of retrying", func(t *testing.T) {
		f := newFixture(t, []string{"other-org"})
		intake := NewIntake(f.service, logger)

		msg := batchMessage(t, kafka.BatchMessage{
			JobID:          "job-1",
			OrganizationID: "org-id",
			Apis:           []models.ExternalApi{{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"}},
		})

		require.NoError(t, intake.HandleMessage(ctx, msg))
		assert.Empty(t, f.apis.All())
	})
}
