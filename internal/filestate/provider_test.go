package filestate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ito-project/ito/internal/filestate"
	"github.com/ito-project/ito/pkg/errclass"
	"github.com/ito-project/ito/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTasks(t *testing.T, changesDir, change, content string) {
	t.Helper()
	dir := filepath.Join(changesDir, change)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, filestate.TasksFileName), []byte(content), 0644))
}

func TestTasksProvider_Snapshot(t *testing.T) {
	changes := t.TempDir()
	writeTasks(t, changes, "ch", "### Task 1.1: A\n\n- **Status**: [x] complete\n")

	p := filestate.NewTasksProvider(changes)
	state, err := p.Snapshot("ch")
	require.NoError(t, err)
	assert.Equal(t, model.FileState{
		{Kind: model.EntityTask, ID: "1.1", Scope: "ch"}: "complete",
	}, state)
}

func TestTasksProvider_ProjectWideSkipsArchive(t *testing.T) {
	changes := t.TempDir()
	writeTasks(t, changes, "a", "### Task 1.1: A\n\n- **Status**: [ ] pending\n")
	writeTasks(t, changes, "b", "- [x] 1.1 B\n")
	writeTasks(t, changes, "archive", "### Task 9.9: Old\n\n- **Status**: [x] complete\n")
	require.NoError(t, os.WriteFile(filepath.Join(changes, "README.md"), []byte("x"), 0644))

	p := filestate.NewTasksProvider(changes)

	scopes, err := p.Scopes()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, scopes)

	state, err := p.Snapshot("")
	require.NoError(t, err)
	assert.Len(t, state, 2)
	assert.Equal(t, "pending", state[model.EntityKey{Kind: model.EntityTask, ID: "1.1", Scope: "a"}])
	assert.Equal(t, "complete", state[model.EntityKey{Kind: model.EntityTask, ID: "1.1", Scope: "b"}])
}

func TestTasksProvider_MissingFiles(t *testing.T) {
	p := filestate.NewTasksProvider(filepath.Join(t.TempDir(), "changes"))

	scopes, err := p.Scopes()
	require.NoError(t, err)
	assert.Empty(t, scopes)

	state, err := p.Snapshot("nope")
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestTasksProvider_RejectsUnsafeScope(t *testing.T) {
	p := filestate.NewTasksProvider(t.TempDir())
	_, err := p.Snapshot("../etc")
	assert.ErrorIs(t, err, errclass.ErrNameInvalid)
}

func TestTasksProvider_Kinds(t *testing.T) {
	assert.Equal(t, []model.EntityKind{model.EntityTask}, filestate.NewTasksProvider("").Kinds())
}
