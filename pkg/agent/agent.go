// Package agent defines the boundary to integration agents: the remote
// workers that talk to external API providers on behalf of an integration.
// The wire protocol is owned by the agents themselves, the engine only
// consumes this interface.
package agent

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/models"
)

type Status string

const (
	StatusConnected    Status = "CONNECTED"
	StatusDisconnected Status = "DISCONNECTED"
)

// Agent exposes the discovery surface of one integration's remote agent.
type Agent interface {
	// ListApis fetches every API asset currently discoverable through the
	// integration.
	ListApis(ctx context.Context, integrationID string) ([]models.ExternalApi, error)
	// CountApis reports how many API assets are currently discoverable.
	CountApis(ctx context.Context, integrationID string) (int64, error)
	// Status reports whether the integration's agent is reachable.
	Status(ctx context.Context, integrationID string) (Status, error)
}

// Disconnected is the agent used when no agent transport is configured. It
// reports every integration as disconnected with nothing to discover, so
// StartIngest completes without opening a job.
type Disconnected struct{}

func (Disconnected) ListApis(ctx context.Context, integrationID string) ([]models.ExternalApi, error) {
	return nil, nil
}

func (Disconnected) CountApis(ctx context.Context, integrationID string) (int64, error) {
	return 0, nil
}

func (Disconnected) Status(ctx context.Context, integrationID string) (Status, error) {
	return StatusDisconnected, nil
}
