package differ

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/inmemory"
	"github.com/Ramsey-B/fern/pkg/models"
)

func testTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newTestDiffer(apis *inmemory.ApiStore) *Differ {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return New(apis, logger)
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown asset is NEW", func(t *testing.T) {
		d := newTestDiffer(inmemory.NewApiStore())

		preview, err := d.Classify(ctx, "environment-id", "integration-id", models.ExternalApi{
			UniqueID: "uid-1",
			Name:     "orders",
		})

		require.NoError(t, err)
		assert.Equal(t, models.DiscoveredApi{
			ID:    "environment-idintegration-iduid-1",
			Name:  "orders",
			State: models.DiscoveredApiStateNew,
		}, preview)
	})

	t.Run("existing asset is UPDATE", func(t *testing.T) {
		apis := inmemory.NewApiStore()
		require.NoError(t, apis.Create(ctx, models.FederatedApi{
			ID:   "environment-idintegration-iduid-1",
			Name: "orders",
		}))
		d := newTestDiffer(apis)

		preview, err := d.Classify(ctx, "environment-id", "integration-id", models.ExternalApi{
			UniqueID: "uid-1",
			Name:     "orders",
		})

		require.NoError(t, err)
		assert.Equal(t, models.DiscoveredApiStateUpdate, preview.State)
	})

	t.Run("identical content is still UPDATE", func(t *testing.T) {
		// ingestion rewrites mutable fields unconditionally, so the preview
		// never claims a no-op
		apis := inmemory.NewApiStore()
		external := models.ExternalApi{UniqueID: "uid-1", Name: "orders", Version: "1.0.0"}
		require.NoError(t, apis.Create(ctx, models.NewFederatedApi(
			"environment-idintegration-iduid-1", "environment-id", "integration-id", external, testTime(t),
		)))
		d := newTestDiffer(apis)

		preview, err := d.Classify(ctx, "environment-id", "integration-id", external)

		require.NoError(t, err)
		assert.Equal(t, models.DiscoveredApiStateUpdate, preview.State)
	})
}
