// Package metrics provides Prometheus counters for the ito audit subsystem.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide metrics registry.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry()
	}
	return defaultRegistry
}

// Registry holds all ito metrics on a dedicated Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	EventsAppended       *prometheus.CounterVec
	ParseFailures        prometheus.Counter
	Drift                *prometheus.CounterVec
	CompensatingEvents   prometheus.Counter
	ValidationIssues     *prometheus.CounterVec
	StreamEvents         prometheus.Counter
	StreamWatchesDropped prometheus.Counter
}

// NewRegistry creates a registry with every ito counter registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		EventsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ito_audit_events_appended_total",
			Help: "Audit events appended to the log, by result.",
		}, []string{"result"}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ito_audit_parse_failures_total",
			Help: "Audit log lines skipped because they could not be decoded.",
		}),
		Drift: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ito_audit_drift_total",
			Help: "Drift findings between the audit log and file state, by kind.",
		}, []string{"kind"}),
		CompensatingEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ito_audit_compensating_events_total",
			Help: "Reconciled events written by audit reconcile --fix.",
		}),
		ValidationIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ito_audit_validation_issues_total",
			Help: "Validation issues reported, by severity.",
		}, []string{"severity"}),
		StreamEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ito_audit_stream_events_total",
			Help: "Events emitted by the audit stream.",
		}),
		StreamWatchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ito_audit_stream_watches_dropped_total",
			Help: "Stream watches dropped because their log disappeared.",
		}),
	}
	r.reg.MustRegister(
		r.EventsAppended,
		r.ParseFailures,
		r.Drift,
		r.CompensatingEvents,
		r.ValidationIssues,
		r.StreamEvents,
		r.StreamWatchesDropped,
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// RecordAppend records one append attempt.
func (r *Registry) RecordAppend(success bool) {
	result := "ok"
	if !success {
		result = "error"
	}
	r.EventsAppended.WithLabelValues(result).Inc()
}

// RecordParseFailure records one skipped line.
func (r *Registry) RecordParseFailure() {
	r.ParseFailures.Inc()
}

// RecordDrift records one drift finding of the given kind.
func (r *Registry) RecordDrift(kind string) {
	r.Drift.WithLabelValues(kind).Inc()
}

// RecordCompensating records n compensating events written.
func (r *Registry) RecordCompensating(n int) {
	r.CompensatingEvents.Add(float64(n))
}

// RecordValidationIssue records one validation issue.
func (r *Registry) RecordValidationIssue(severity string) {
	r.ValidationIssues.WithLabelValues(severity).Inc()
}

// RecordStreamEvent records one streamed event.
func (r *Registry) RecordStreamEvent() {
	r.StreamEvents.Inc()
}

// RecordWatchDropped records one dropped stream watch.
func (r *Registry) RecordWatchDropped() {
	r.StreamWatchesDropped.Inc()
}

// WriteTextfile writes all metrics in the Prometheus text format for the
// node-exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
