// Package audit records the immutable audit trail of catalog mutations.
package audit

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/clock"
	"github.com/Ramsey-B/fern/pkg/idgen"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Store persists audit entries.
type Store interface {
	Create(ctx context.Context, entry models.AuditEntry) error
}

type Service struct {
	store  Store
	clock  clock.Clock
	ids    idgen.Generator
	logger ectologger.Logger
}

func NewService(store Store, clk clock.Clock, ids idgen.Generator, logger ectologger.Logger) *Service {
	return &Service{
		store:  store,
		clock:  clk,
		ids:    ids,
		logger: logger,
	}
}

// RecordApiEvent appends one audit entry for an API-scoped event. Entries are
// written in call order, which callers rely on for per-item audit ordering.
func (s *Service) RecordApiEvent(ctx context.Context, info models.AuditInfo, apiID string, event models.AuditEvent, properties map[string]string) error {
	entry := models.AuditEntry{
		ID:             s.ids.NewID(),
		OrganizationID: info.OrganizationID,
		EnvironmentID:  info.EnvironmentID,
		ReferenceType:  models.AuditReferenceApi,
		ReferenceID:    apiID,
		User:           info.UserID,
		Event:          event,
		Properties:     properties,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.store.Create(ctx, entry); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event":        event,
			"reference_id": apiID,
		}).Error("failed to record audit entry")
		return err
	}

	return nil
}
