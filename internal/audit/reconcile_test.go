package audit_test

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ito-project/ito/internal/audit"
	"github.com/ito-project/ito/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticProvider serves task file state from memory, keyed by scope.
type staticProvider struct {
	scopes map[string]map[string]string
}

func (p *staticProvider) Kinds() []model.EntityKind {
	return []model.EntityKind{model.EntityTask}
}

func (p *staticProvider) Scopes() ([]string, error) {
	var out []string
	for s := range p.scopes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (p *staticProvider) Snapshot(scope string) (model.FileState, error) {
	fs := model.FileState{}
	for id, status := range p.scopes[scope] {
		fs[taskKey(id, scope)] = status
	}
	return fs, nil
}

type failingWriter struct {
	calls int
}

func (w *failingWriter) Append(*model.AuditEvent) error {
	w.calls++
	return errors.New("disk full")
}

func seedLog(t *testing.T, evs ...*model.AuditEvent) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	w := audit.NewFileWriter(path)
	for _, ev := range evs {
		require.NoError(t, w.Append(ev))
	}
	return path
}

func TestReconcile_DivergedFixAppendsOneEvent(t *testing.T) {
	path := seedLog(t,
		newTaskEvent(t, "1.1", "ch", model.OpCreate, "", "pending"),
		newTaskEvent(t, "1.1", "ch", model.OpStatusChange, "pending", "in-progress"),
	)
	provider := &staticProvider{scopes: map[string]map[string]string{"ch": {"1.1": "complete"}}}
	r := &audit.Reconciler{LogPath: path, Provider: provider, Writer: audit.NewFileWriter(path)}

	report, err := r.Reconcile("ch", false)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, model.DriftDiverged, report.Drifts[0].Kind)
	assert.Equal(t, "in-progress", report.Drifts[0].Expected)
	assert.Equal(t, "complete", report.Drifts[0].Actual)
	assert.Zero(t, report.EventsWritten)
	assert.Len(t, readLines(t, path), 2)

	report, err = r.Reconcile("ch", true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.EventsWritten)
	assert.NoError(t, report.WriteErrors)

	result, err := audit.ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, result.Events, 3)
	last := result.Events[2]
	assert.Equal(t, model.OpReconciled, last.Operation)
	assert.Equal(t, "in-progress", last.From)
	assert.Equal(t, "complete", last.To)
	assert.Equal(t, model.ActorReconcile, last.Actor)

	report, err = r.Reconcile("ch", true)
	require.NoError(t, err)
	assert.Empty(t, report.Drifts)
	assert.Zero(t, report.EventsWritten)
}

func TestReconcile_ScopeIgnoresOtherChanges(t *testing.T) {
	path := seedLog(t,
		newTaskEvent(t, "1.1", "ch", model.OpCreate, "", "pending"),
		newTaskEvent(t, "9.9", "other", model.OpCreate, "", "pending"),
	)
	provider := &staticProvider{scopes: map[string]map[string]string{"ch": {"1.1": "pending"}}}
	r := &audit.Reconciler{LogPath: path, Provider: provider, Writer: audit.DiscardWriter{}}

	drifts, err := r.Detect("ch")
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestReconcile_ProjectWideVisitsEveryScope(t *testing.T) {
	path := seedLog(t,
		newTaskEvent(t, "1.1", "a", model.OpCreate, "", "pending"),
		newTaskEvent(t, "1.1", "b", model.OpCreate, "", "pending"),
		newTaskEvent(t, "1.1", "archived-change", model.OpCreate, "", "pending"),
	)
	provider := &staticProvider{scopes: map[string]map[string]string{
		"a": {"1.1": "pending"},
		"b": {"1.1": "complete", "1.2": "pending"},
	}}
	r := &audit.Reconciler{LogPath: path, Provider: provider, Writer: audit.DiscardWriter{}}

	report, err := r.Reconcile("", false)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 2)
	assert.Equal(t, model.DriftDiverged, report.Drifts[0].Kind)
	assert.Equal(t, taskKey("1.1", "b"), report.Drifts[0].Key)
	assert.Equal(t, model.DriftMissing, report.Drifts[1].Kind)
	assert.Equal(t, taskKey("1.2", "b"), report.Drifts[1].Key)
}

func TestReconcile_OrphanedIsReportedNotFixed(t *testing.T) {
	path := seedLog(t, newTaskEvent(t, "1.1", "ch", model.OpCreate, "", "pending"))
	provider := &staticProvider{scopes: map[string]map[string]string{"ch": {}}}
	r := &audit.Reconciler{LogPath: path, Provider: provider, Writer: audit.NewFileWriter(path)}

	report, err := r.Reconcile("ch", true)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, model.DriftOrphaned, report.Drifts[0].Kind)
	assert.Zero(t, report.EventsWritten)
	assert.Len(t, readLines(t, path), 1)
}

func TestReconcile_WriteFailuresAreAggregated(t *testing.T) {
	path := seedLog(t)
	provider := &staticProvider{scopes: map[string]map[string]string{"ch": {"1.1": "pending", "1.2": "complete"}}}
	w := &failingWriter{}
	r := &audit.Reconciler{LogPath: path, Provider: provider, Writer: w}

	report, err := r.Reconcile("ch", true)
	require.NoError(t, err)
	assert.Len(t, report.Drifts, 2)
	assert.Equal(t, 2, w.calls)
	assert.Zero(t, report.EventsWritten)
	require.Error(t, report.WriteErrors)
	assert.Contains(t, report.WriteErrors.Error(), "disk full")
}

func TestReconcile_MissingLog(t *testing.T) {
	provider := &staticProvider{scopes: map[string]map[string]string{"ch": {"1.1": "pending"}}}
	r := &audit.Reconciler{
		LogPath:  filepath.Join(t.TempDir(), "events.jsonl"),
		Provider: provider,
		Writer:   audit.DiscardWriter{},
	}

	report, err := r.Reconcile("ch", false)
	require.NoError(t, err)
	require.Len(t, report.Drifts, 1)
	assert.Equal(t, model.DriftMissing, report.Drifts[0].Kind)
}
