package audit

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/ito-project/ito/pkg/logging"
	"github.com/ito-project/ito/pkg/metrics"
	"github.com/ito-project/ito/pkg/model"
)

// FileStateProvider exposes the on-disk view of entities that the log is
// reconciled against.
type FileStateProvider interface {
	// Kinds lists the entity kinds the provider is authoritative for.
	Kinds() []model.EntityKind
	// Scopes lists every scope a project-wide reconcile should visit.
	Scopes() ([]string, error)
	// Snapshot returns the file state of one scope.
	Snapshot(scope string) (model.FileState, error)
}

// ReconcileReport is the outcome of one reconcile run. Scope is empty for a
// project-wide run. WriteErrors aggregates failed compensating appends and
// is nil when all succeeded.
type ReconcileReport struct {
	Scope         string        `json:"scope,omitempty"`
	Drifts        []model.Drift `json:"drifts"`
	Fix           bool          `json:"fix"`
	EventsWritten int           `json:"events_written"`
	WriteErrors   error         `json:"-"`
}

// Reconciler compares the log at LogPath with Provider's file state.
type Reconciler struct {
	LogPath  string
	Provider FileStateProvider
	Writer   Writer
	Context  model.EventContext
}

// Detect returns the drift between the log and the file state without
// writing anything. An empty scope visits every scope of the provider.
func (r *Reconciler) Detect(scope string) ([]model.Drift, error) {
	result, err := ReadEvents(r.LogPath)
	if err != nil {
		return nil, err
	}
	state := Materialize(result.Events)

	if scope != "" {
		return r.detectScope(state, scope)
	}

	scopes, err := r.Provider.Scopes()
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	var drifts []model.Drift
	for _, s := range scopes {
		found, err := r.detectScope(state, s)
		if err != nil {
			return nil, err
		}
		drifts = append(drifts, found...)
	}
	return drifts, nil
}

func (r *Reconciler) detectScope(state model.MaterializedState, scope string) ([]model.Drift, error) {
	files, err := r.Provider.Snapshot(scope)
	if err != nil {
		return nil, fmt.Errorf("file state for %s: %w", scope, err)
	}
	return ComputeDrift(state.Filter(r.Provider.Kinds(), scope), files), nil
}

// Reconcile detects drift and, when fix is set, appends one compensating
// event per Missing or Diverged drift. Appends are attempted for every
// drift even after a failure; failures are aggregated in WriteErrors.
func (r *Reconciler) Reconcile(scope string, fix bool) (*ReconcileReport, error) {
	drifts, err := r.Detect(scope)
	if err != nil {
		return nil, err
	}

	reg := metrics.Default()
	for _, d := range drifts {
		reg.RecordDrift(string(d.Kind))
	}

	report := &ReconcileReport{Scope: scope, Drifts: drifts, Fix: fix}
	if !fix || len(drifts) == 0 {
		return report, nil
	}

	var errs []error
	for _, event := range GenerateCompensatingEvents(drifts, r.Context) {
		if err := r.Writer.Append(event); err != nil {
			logging.Warn("compensating event not recorded", map[string]any{
				"entity_kind": string(event.EntityKind),
				"entity_id":   event.EntityID,
				"scope":       event.Scope,
				"error":       err.Error(),
			})
			errs = append(errs, fmt.Errorf("%s: %w", event.Key(), err))
			continue
		}
		report.EventsWritten++
	}
	reg.RecordCompensating(report.EventsWritten)
	report.WriteErrors = utilerrors.NewAggregate(errs)

	return report, nil
}
