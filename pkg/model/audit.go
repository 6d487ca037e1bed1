package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ito-project/ito/pkg/errclass"
)

// SchemaVersion is the current audit event schema version. Bumped only on
// breaking changes; readers accept newer versions and ignore unknown fields.
const SchemaVersion = 1

// EntityKind identifies the kind of domain entity an event is about.
type EntityKind string

const (
	EntityTask     EntityKind = "task"
	EntityChange   EntityKind = "change"
	EntityModule   EntityKind = "module"
	EntityWave     EntityKind = "wave"
	EntityPlanning EntityKind = "planning"
	EntityConfig   EntityKind = "config"
)

// EntityKinds lists the closed set of kinds accepted on write.
var EntityKinds = []EntityKind{
	EntityTask,
	EntityChange,
	EntityModule,
	EntityWave,
	EntityPlanning,
	EntityConfig,
}

// Known reports whether k is part of the current closed set. Decoding never
// rejects unknown kinds; only construction does.
func (k EntityKind) Known() bool {
	for _, known := range EntityKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Operation identifies the state transition an event records.
type Operation string

const (
	OpCreate          Operation = "create"
	OpAdd             Operation = "add"
	OpStatusChange    Operation = "status_change"
	OpArchive         Operation = "archive"
	OpChangeAdded     Operation = "change_added"
	OpChangeCompleted Operation = "change_completed"
	OpWaveUnlock      Operation = "unlock"
	OpDecision        Operation = "decision"
	OpBlocker         Operation = "blocker"
	OpQuestion        Operation = "question"
	OpNote            Operation = "note"
	OpFocusChange     Operation = "focus_change"
	OpConfigSet       Operation = "set"
	OpConfigUnset     Operation = "unset"
	OpReconciled      Operation = "reconciled"
)

// IsCreate reports whether op introduces an entity into the log.
func (op Operation) IsCreate() bool {
	return op == OpCreate || op == OpAdd
}

// Actor identifies what kind of caller emitted an event.
type Actor string

const (
	// ActorInteractive is a command invoked directly by a user or agent.
	ActorInteractive Actor = "interactive"
	// ActorReconcile marks compensating events written by reconciliation.
	ActorReconcile Actor = "reconcile"
	// ActorAutomation is an unattended control loop.
	ActorAutomation Actor = "automation"
)

// Known reports whether a is one of the defined actors.
func (a Actor) Known() bool {
	switch a {
	case ActorInteractive, ActorReconcile, ActorAutomation:
		return true
	}
	return false
}

// EventContext is best-effort provenance captured at write time.
type EventContext struct {
	SessionID        string `json:"session_id"`
	HarnessSessionID string `json:"harness_session_id,omitempty"`
	Branch           string `json:"branch,omitempty"`
	Worktree         string `json:"worktree,omitempty"`
	Commit           string `json:"commit,omitempty"`
}

// AuditEvent is a single line in the audit log (JSONL format). Events are
// never modified once appended; corrections are new events.
type AuditEvent struct {
	SchemaVersion int          `json:"schema_version"`
	Timestamp     time.Time    `json:"timestamp"`
	EntityKind    EntityKind   `json:"entity_kind"`
	EntityID      string       `json:"entity_id"`
	Scope         string       `json:"scope,omitempty"`
	Operation     Operation    `json:"operation"`
	From          string       `json:"from,omitempty"`
	To            string       `json:"to,omitempty"`
	Actor         Actor        `json:"actor"`
	By            string       `json:"by,omitempty"`
	Metadata      Metadata     `json:"metadata,omitempty"`
	Context       EventContext `json:"context"`
}

// Key returns the materialization key of the event.
func (e *AuditEvent) Key() EntityKey {
	return EntityKey{Kind: e.EntityKind, ID: e.EntityID, Scope: e.Scope}
}

// EventOption customizes an event built by NewEvent.
type EventOption func(*AuditEvent)

// WithScope sets the enclosing grouping, usually a change id.
func WithScope(scope string) EventOption {
	return func(e *AuditEvent) { e.Scope = scope }
}

// WithFrom sets the previous state.
func WithFrom(from string) EventOption {
	return func(e *AuditEvent) { e.From = from }
}

// WithTo sets the new state.
func WithTo(to string) EventOption {
	return func(e *AuditEvent) { e.To = to }
}

// WithTransition sets both the previous and the new state.
func WithTransition(from, to string) EventOption {
	return func(e *AuditEvent) {
		e.From = from
		e.To = to
	}
}

// WithActor sets the actor kind and the optional identity string.
func WithActor(actor Actor, by string) EventOption {
	return func(e *AuditEvent) {
		e.Actor = actor
		e.By = by
	}
}

// WithMetadata attaches operation-specific detail. A value JSON cannot
// encode is recorded as its %v string.
func WithMetadata(values map[string]any) EventOption {
	return func(e *AuditEvent) {
		m, err := EncodeMetadata(values)
		if err != nil {
			m = make(Metadata, len(values))
			for key, value := range values {
				raw, err := json.Marshal(value)
				if err != nil {
					raw, _ = json.Marshal(fmt.Sprintf("%v", value))
				}
				m[key] = raw
			}
		}
		e.Metadata = m
	}
}

// WithContext attaches session provenance.
func WithContext(ctx EventContext) EventOption {
	return func(e *AuditEvent) { e.Context = ctx }
}

// WithTimestamp overrides the write-time timestamp.
func WithTimestamp(ts time.Time) EventOption {
	return func(e *AuditEvent) { e.Timestamp = ts.UTC().Truncate(time.Millisecond) }
}

// NewEvent builds an event for the current closed set of entity kinds,
// stamping the schema version and a millisecond-precision UTC timestamp.
// The actor defaults to ActorInteractive.
func NewEvent(kind EntityKind, entityID string, op Operation, opts ...EventOption) (*AuditEvent, error) {
	if !kind.Known() {
		return nil, errclass.ErrEntityKindUnknown.WithMessagef("entity kind %q is not writable", kind)
	}
	if entityID == "" {
		return nil, errclass.ErrEventInvalid.WithMessage("entity_id must not be empty")
	}
	if op == "" {
		return nil, errclass.ErrEventInvalid.WithMessage("operation must not be empty")
	}

	e := &AuditEvent{
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC().Truncate(time.Millisecond),
		EntityKind:    kind,
		EntityID:      entityID,
		Operation:     op,
		Actor:         ActorInteractive,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}
