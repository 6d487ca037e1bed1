package audit

import "github.com/ito-project/ito/pkg/model"

// Stats summarizes a log by counting events along several dimensions.
type Stats struct {
	Total       int            `json:"total"`
	ByKind      map[string]int `json:"by_kind"`
	ByOperation map[string]int `json:"by_operation"`
	ByActor     map[string]int `json:"by_actor"`
	ByScope     map[string]int `json:"by_scope"`
}

// ComputeStats counts events by kind, operation, actor and scope. Events
// without a scope are not counted in ByScope.
func ComputeStats(events []model.AuditEvent) Stats {
	s := Stats{
		Total:       len(events),
		ByKind:      make(map[string]int),
		ByOperation: make(map[string]int),
		ByActor:     make(map[string]int),
		ByScope:     make(map[string]int),
	}
	for i := range events {
		e := &events[i]
		s.ByKind[string(e.EntityKind)]++
		s.ByOperation[string(e.Operation)]++
		s.ByActor[string(e.Actor)]++
		if e.Scope != "" {
			s.ByScope[e.Scope]++
		}
	}
	return s
}
