package audit

import "github.com/ito-project/ito/pkg/model"

// ArchivedStatus is the status an archive event without a target implies.
const ArchivedStatus = "archived"

// Materialize replays events in slice order and returns the last known
// status of every entity. Timestamps are never consulted, so among equal
// timestamps the later line wins. Entities whose events never carried a
// status (notes, decisions) are left out; EventCount counts every event of
// an included entity.
func Materialize(events []model.AuditEvent) model.MaterializedState {
	counts := make(map[model.EntityKey]int)
	state := make(model.MaterializedState)

	for i := range events {
		event := &events[i]
		key := event.Key()
		counts[key]++

		status := event.To
		if status == "" && event.Operation == model.OpArchive {
			status = ArchivedStatus
		}
		if status != "" {
			state[key] = model.EntityState{Status: status}
		}
	}

	for key, s := range state {
		s.EventCount = counts[key]
		state[key] = s
	}
	return state
}
