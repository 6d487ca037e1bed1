package model

import (
	"fmt"
	"path/filepath"
)

// EntityKey identifies an entity within the audit log. IDs are unique
// within (Kind, Scope); an empty Scope marks a project-global entity.
type EntityKey struct {
	Kind  EntityKind `json:"entity_kind"`
	ID    string     `json:"entity_id"`
	Scope string     `json:"scope,omitempty"`
}

func (k EntityKey) String() string {
	if k.Scope == "" {
		return fmt.Sprintf("%s/%s", k.Kind, k.ID)
	}
	return fmt.Sprintf("%s/%s (%s)", k.Kind, k.ID, k.Scope)
}

// Less orders keys by kind, scope, then id.
func (k EntityKey) Less(other EntityKey) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	if k.Scope != other.Scope {
		return k.Scope < other.Scope
	}
	return k.ID < other.ID
}

// EntityState is the replayed view of one entity.
type EntityState struct {
	Status     string `json:"status"`
	EventCount int    `json:"event_count"`
}

// MaterializedState maps each entity to its last known status. It is
// rebuilt from a full replay on every use and never persisted.
type MaterializedState map[EntityKey]EntityState

// Filter returns the subset of s whose kind is in kinds (all kinds when
// kinds is empty) and, when scope is non-empty, whose scope matches.
func (s MaterializedState) Filter(kinds []EntityKind, scope string) MaterializedState {
	out := make(MaterializedState, len(s))
	for key, state := range s {
		if scope != "" && key.Scope != scope {
			continue
		}
		if len(kinds) > 0 && !containsKind(kinds, key.Kind) {
			continue
		}
		out[key] = state
	}
	return out
}

// FileState is the externally supplied on-disk view: entity -> status.
type FileState map[EntityKey]string

func containsKind(kinds []EntityKind, kind EntityKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DriftKind classifies a disagreement between log and file state.
type DriftKind string

const (
	// DriftMissing: the file has the entity, the log has no events for it.
	DriftMissing DriftKind = "missing"
	// DriftDiverged: both know the entity but disagree on its status.
	DriftDiverged DriftKind = "diverged"
	// DriftOrphaned: the log has events for an entity the files no longer have.
	DriftOrphaned DriftKind = "orphaned"
)

// Drift is one finding of a log/file comparison. Expected is the
// log-derived status, Actual the file status.
type Drift struct {
	Kind     DriftKind `json:"kind"`
	Key      EntityKey `json:"key"`
	Expected string    `json:"expected,omitempty"`
	Actual   string    `json:"actual,omitempty"`
}

func (d Drift) String() string {
	switch d.Kind {
	case DriftMissing:
		return fmt.Sprintf("missing: %s has file status '%s' but no audit events", d.Key, d.Actual)
	case DriftDiverged:
		return fmt.Sprintf("diverged: %s audit='%s' file='%s'", d.Key, d.Expected, d.Actual)
	case DriftOrphaned:
		return fmt.Sprintf("orphaned: %s has audit status '%s' but no file entry", d.Key, d.Expected)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Key)
}

// WorktreeInfo describes one parallel working copy and its own log file.
type WorktreeInfo struct {
	Path    string `json:"path"`
	Branch  string `json:"branch,omitempty"`
	IsMain  bool   `json:"is_main"`
	LogPath string `json:"log_path"`
}

// Label is the short name used to tag streamed events.
func (w WorktreeInfo) Label() string {
	if w.Branch != "" {
		return w.Branch
	}
	if w.IsMain {
		return "main"
	}
	return filepath.Base(w.Path)
}

// TaggedEvent is an event annotated with the worktree it was read from.
type TaggedEvent struct {
	Event  AuditEvent   `json:"event"`
	Source WorktreeInfo `json:"source"`
}
