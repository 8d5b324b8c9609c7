package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApiID(t *testing.T) {
	t.Run("concatenates environment, integration and unique id", func(t *testing.T) {
		id := ApiID("environment-id", "integration-id", "uid-1")
		assert.Equal(t, "environment-idintegration-iduid-1", id)
	})

	t.Run("is stable across calls", func(t *testing.T) {
		first := ApiID("env", "int", "asset")
		second := ApiID("env", "int", "asset")
		assert.Equal(t, first, second)
	})

	t.Run("differs per environment", func(t *testing.T) {
		assert.NotEqual(t, ApiID("env-a", "int", "asset"), ApiID("env-b", "int", "asset"))
	})

	t.Run("differs per integration", func(t *testing.T) {
		assert.NotEqual(t, ApiID("env", "int-a", "asset"), ApiID("env", "int-b", "asset"))
	})
}

func TestPlanID(t *testing.T) {
	apiID := ApiID("environment-id", "integration-id", "uid-1")

	t.Run("concatenates api id and external plan id", func(t *testing.T) {
		assert.Equal(t, "environment-idintegration-iduid-1plan-1", PlanID(apiID, "plan-1"))
	})

	t.Run("is stable across calls", func(t *testing.T) {
		assert.Equal(t, PlanID(apiID, "plan-1"), PlanID(apiID, "plan-1"))
	})
}
