package audit

import (
	"fmt"
	"sort"

	"github.com/ito-project/ito/pkg/model"
)

// ReconcileIdentity is the "by" value of compensating events.
const ReconcileIdentity = "@reconcile"

// ComputeDrift compares log-derived state against file state. It is pure:
// the result depends only on its inputs and is sorted by entity key.
func ComputeDrift(materialized model.MaterializedState, files model.FileState) []model.Drift {
	var drifts []model.Drift

	for key, fileStatus := range files {
		logState, ok := materialized[key]
		switch {
		case !ok:
			drifts = append(drifts, model.Drift{Kind: model.DriftMissing, Key: key, Actual: fileStatus})
		case logState.Status != fileStatus:
			drifts = append(drifts, model.Drift{
				Kind:     model.DriftDiverged,
				Key:      key,
				Expected: logState.Status,
				Actual:   fileStatus,
			})
		}
	}

	for key, logState := range materialized {
		if _, ok := files[key]; !ok {
			drifts = append(drifts, model.Drift{Kind: model.DriftOrphaned, Key: key, Expected: logState.Status})
		}
	}

	sort.Slice(drifts, func(i, j int) bool {
		return drifts[i].Key.Less(drifts[j].Key)
	})
	return drifts
}

// GenerateCompensatingEvents builds one reconciled event per Missing or
// Diverged drift so that replaying the log afterwards agrees with the file
// state. Orphaned drifts produce nothing: the files cannot say what the
// entity became.
func GenerateCompensatingEvents(drifts []model.Drift, ec model.EventContext) []*model.AuditEvent {
	var events []*model.AuditEvent
	for _, d := range drifts {
		var opts []model.EventOption
		switch d.Kind {
		case model.DriftMissing:
			opts = append(opts,
				model.WithTo(d.Actual),
				model.WithMetadata(map[string]any{
					"drift":  string(d.Kind),
					"reason": fmt.Sprintf("%s '%s' has file status '%s' but no audit events", d.Key.Kind, d.Key.ID, d.Actual),
				}))
		case model.DriftDiverged:
			opts = append(opts,
				model.WithTransition(d.Expected, d.Actual),
				model.WithMetadata(map[string]any{
					"drift":  string(d.Kind),
					"reason": fmt.Sprintf("%s '%s' audit status '%s' differs from file status '%s'", d.Key.Kind, d.Key.ID, d.Expected, d.Actual),
				}))
		default:
			continue
		}
		opts = append(opts,
			model.WithScope(d.Key.Scope),
			model.WithActor(model.ActorReconcile, ReconcileIdentity),
			model.WithContext(ec),
		)

		event, err := model.NewEvent(d.Key.Kind, d.Key.ID, model.OpReconciled, opts...)
		if err != nil {
			// Only kinds outside the writable set fail here; skip them.
			continue
		}
		events = append(events, event)
	}
	return events
}
