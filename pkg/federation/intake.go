package federation

import (
	"context"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Intake feeds agent batches arriving over Kafka into the ingestion use case.
// Agents push discovered assets asynchronously instead of holding an HTTP
// request open for the whole run.
type Intake struct {
	svc    *Service
	logger ectologger.Logger
}

func NewIntake(svc *Service, logger ectologger.Logger) *Intake {
	return &Intake{
		svc:    svc,
		logger: logger,
	}
}

// HandleMessage applies one agent batch. Malformed payloads and rejected
// batches are committed rather than redelivered; only storage failures are
// returned so the consumer retries them.
func (i *Intake) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "federation.Intake.HandleMessage")
	defer span.End()

	batch, err := msg.ParseBatch()
	if err != nil {
		i.logger.WithContext(ctx).WithError(err).Error("failed to parse agent batch, dropping")
		return nil
	}
	if batch.JobID == "" {
		i.logger.WithContext(ctx).Warn("agent batch has no job id, dropping")
		return nil
	}

	info := models.AuditInfo{
		OrganizationID: batch.OrganizationID,
		EnvironmentID:  batch.EnvironmentID,
		UserID:         batch.UserID,
	}

	result, err := i.svc.Ingest(ctx, IngestInput{
		JobID: batch.JobID,
		Apis:  batch.Apis,
		Done:  batch.Done,
	}, info)
	if err != nil {
		if httperror.IsHTTPError(err) {
			i.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"job_id": batch.JobID,
			}).Warn("agent batch rejected, dropping")
			return nil
		}
		return err
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":  batch.JobID,
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
	}).Info("applied agent batch")

	return nil
}
