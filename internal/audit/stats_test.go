package audit_test

import (
	"testing"

	"github.com/ito-project/ito/internal/audit"
	"github.com/ito-project/ito/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats(t *testing.T) {
	cfg, err := model.NewEvent(model.EntityConfig, "audit.enabled", model.OpConfigSet, model.WithTransition("true", "false"))
	require.NoError(t, err)
	rec := newTaskEvent(t, "1.1", "ch", model.OpReconciled, "pending", "complete")
	rec.Actor = model.ActorReconcile

	stats := audit.ComputeStats(events(
		newTaskEvent(t, "1.1", "ch", model.OpCreate, "", "pending"),
		newTaskEvent(t, "1.2", "other", model.OpCreate, "", "pending"),
		rec,
		cfg,
	))

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, map[string]int{"task": 3, "config": 1}, stats.ByKind)
	assert.Equal(t, map[string]int{"create": 2, "reconciled": 1, "set": 1}, stats.ByOperation)
	assert.Equal(t, map[string]int{"interactive": 3, "reconcile": 1}, stats.ByActor)
	assert.Equal(t, map[string]int{"ch": 2, "other": 1}, stats.ByScope)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := audit.ComputeStats(nil)
	assert.Zero(t, stats.Total)
	assert.Empty(t, stats.ByKind)
}
