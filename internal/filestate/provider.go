package filestate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ito-project/ito/pkg/model"
	"github.com/ito-project/ito/pkg/pathutil"
)

const (
	// TasksFileName is the per-change task tracking file.
	TasksFileName = "tasks.md"
	// ArchiveDirName holds archived changes, which are never reconciled.
	ArchiveDirName = "archive"
)

// TasksProvider serves task status from <changesDir>/<change>/tasks.md.
type TasksProvider struct {
	ChangesDir string
}

// NewTasksProvider creates a provider rooted at changesDir.
func NewTasksProvider(changesDir string) *TasksProvider {
	return &TasksProvider{ChangesDir: changesDir}
}

// Kinds implements audit.FileStateProvider.
func (p *TasksProvider) Kinds() []model.EntityKind {
	return []model.EntityKind{model.EntityTask}
}

// Scopes lists every active change directory, sorted.
func (p *TasksProvider) Scopes() ([]string, error) {
	entries, err := os.ReadDir(p.ChangesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list changes: %w", err)
	}

	var scopes []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || name == ArchiveDirName || strings.HasPrefix(name, ".") {
			continue
		}
		scopes = append(scopes, name)
	}
	sort.Strings(scopes)
	return scopes, nil
}

// Snapshot returns the task statuses of one change, or of every active
// change when scope is empty. A change without tasks.md has no tasks.
func (p *TasksProvider) Snapshot(scope string) (model.FileState, error) {
	state := model.FileState{}

	scopes := []string{scope}
	if scope == "" {
		var err error
		if scopes, err = p.Scopes(); err != nil {
			return nil, err
		}
	}

	for _, s := range scopes {
		if err := pathutil.ValidateName(s); err != nil {
			return nil, err
		}
		tasks, err := p.Tasks(s)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			state[model.EntityKey{Kind: model.EntityTask, ID: t.ID, Scope: s}] = t.Status
		}
	}
	return state, nil
}

// Tasks parses the tasks.md of one change.
func (p *TasksProvider) Tasks(change string) ([]Task, error) {
	data, err := os.ReadFile(filepath.Join(p.ChangesDir, change, TasksFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tasks for %s: %w", change, err)
	}
	return ParseTasks(data), nil
}
