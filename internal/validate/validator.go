// Package validate checks an audit log for structural and semantic
// problems and, optionally, for drift against the file state.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/ito-project/ito/internal/audit"
	"github.com/ito-project/ito/pkg/metrics"
	"github.com/ito-project/ito/pkg/model"
)

// Severity grades an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule names.
const (
	RuleParse             = "parse"
	RuleRequiredField     = "required-field"
	RuleTimestamp         = "timestamp"
	RuleUnknownKind       = "unknown-kind"
	RuleSchemaVersion     = "schema-version"
	RuleTimestampOrder    = "timestamp-order"
	RuleDuplicateCreate   = "duplicate-create"
	RuleMissingCreate     = "missing-create"
	RuleIllegalTransition = "illegal-transition"
	RuleFromMismatch      = "from-mismatch"
	RuleStateDrift        = "state-drift"
)

var requiredFields = []string{
	"schema_version",
	"timestamp",
	"entity_kind",
	"entity_id",
	"operation",
	"actor",
}

// Issue is one validation finding. Line is 1-based; zero means the issue
// is not tied to a log line.
type Issue struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Line == 0 {
		return fmt.Sprintf("%s [%s] %s", i.Severity, i.Rule, i.Message)
	}
	return fmt.Sprintf("%s [%s] line %d: %s", i.Severity, i.Rule, i.Line, i.Message)
}

// Report is the result of one validation run.
type Report struct {
	EventCount int     `json:"event_count"`
	Issues     []Issue `json:"issues"`
	Valid      bool    `json:"valid"`
}

// Count returns the number of issues with severity s.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// Options controls a validation run.
type Options struct {
	// Strict promotes warnings to errors.
	Strict bool
	// CheckState compares the replayed log with the file state.
	CheckState bool
	// Scope restricts semantic and state checks to one change.
	Scope string
}

// Validator validates the log at LogPath. Reconciler is only needed for
// state checks.
type Validator struct {
	LogPath    string
	Reconciler *audit.Reconciler
}

// NewValidator creates a validator for the log at logPath.
func NewValidator(logPath string, reconciler *audit.Reconciler) *Validator {
	return &Validator{LogPath: logPath, Reconciler: reconciler}
}

type lineEvent struct {
	line  int
	event model.AuditEvent
}

// Validate runs every check selected by opts. A missing log is valid and
// empty. Errors are returned only when the log or file state cannot be read.
func (v *Validator) Validate(opts Options) (*Report, error) {
	events, issues, err := v.scan()
	if err != nil {
		return nil, err
	}

	if opts.Scope != "" {
		scoped := events[:0]
		for _, le := range events {
			if le.event.Scope == opts.Scope {
				scoped = append(scoped, le)
			}
		}
		events = scoped
	}
	issues = append(issues, checkSemantics(events)...)

	if opts.CheckState {
		if v.Reconciler == nil {
			return nil, errors.New("state check requires a file state provider")
		}
		drifts, err := v.Reconciler.Detect(opts.Scope)
		if err != nil {
			return nil, fmt.Errorf("detect drift: %w", err)
		}
		issues = append(issues, driftIssues(drifts)...)
	}

	if opts.Strict {
		for i := range issues {
			issues[i].Severity = SeverityError
		}
	}

	// Line-less issues sort last.
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i].Line, issues[j].Line
		if a == 0 || b == 0 {
			return b == 0 && a != 0
		}
		return a < b
	})

	report := &Report{EventCount: len(events), Issues: issues}
	report.Valid = report.Count(SeverityError) == 0

	reg := metrics.Default()
	for _, issue := range issues {
		reg.RecordValidationIssue(string(issue.Severity))
	}
	return report, nil
}

// scan applies the structural rules to every raw line and returns the
// events that decoded cleanly.
func (v *Validator) scan() ([]lineEvent, []Issue, error) {
	file, err := os.Open(v.LogPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var (
		events []lineEvent
		issues []Issue
		last   time.Time
	)
	err = audit.ScanLines(file, func(lineNo int, line []byte) {
		event, found := checkLine(lineNo, line)
		issues = append(issues, found...)
		if event == nil {
			return
		}
		if !last.IsZero() && event.Timestamp.Before(last) {
			msg := fmt.Sprintf("timestamp %s is earlier than the previous event (%s)",
				event.Timestamp.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
			issues = append(issues, Issue{Severity: SeverityWarning, Rule: RuleTimestampOrder, Line: lineNo, Message: msg})
		}
		last = event.Timestamp
		events = append(events, lineEvent{line: lineNo, event: *event})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("read audit log: %w", err)
	}
	return events, issues, nil
}

// checkLine validates a single raw line. It returns the decoded event when
// no error-level structural issue was found.
func checkLine(lineNo int, line []byte) (*model.AuditEvent, []Issue) {
	errorAt := func(rule, format string, args ...any) []Issue {
		return []Issue{{Severity: SeverityError, Rule: rule, Line: lineNo, Message: fmt.Sprintf(format, args...)}}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, errorAt(RuleParse, "not a JSON object: %v", err)
	}

	var missing []string
	for _, field := range requiredFields {
		value, ok := raw[field]
		if !ok || string(value) == "null" || string(value) == `""` {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, errorAt(RuleRequiredField, "missing required fields %v", missing)
	}

	var ts string
	if err := json.Unmarshal(raw["timestamp"], &ts); err != nil {
		return nil, errorAt(RuleTimestamp, "timestamp is not a string")
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		return nil, errorAt(RuleTimestamp, "timestamp %q is not RFC 3339", ts)
	}

	var event model.AuditEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return nil, errorAt(RuleParse, "decode event: %v", err)
	}

	var issues []Issue
	if !event.EntityKind.Known() {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Rule:     RuleUnknownKind,
			Line:     lineNo,
			Message:  fmt.Sprintf("unknown entity kind %q", event.EntityKind),
		})
	}
	if event.SchemaVersion > model.SchemaVersion {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Rule:     RuleSchemaVersion,
			Line:     lineNo,
			Message:  fmt.Sprintf("schema version %d is newer than supported version %d", event.SchemaVersion, model.SchemaVersion),
		})
	}
	return &event, issues
}

// checkSemantics replays events in file order, tracking creates and the
// last known status per entity.
func checkSemantics(events []lineEvent) []Issue {
	var issues []Issue
	created := sets.New[model.EntityKey]()
	status := map[model.EntityKey]string{}

	for _, le := range events {
		ev := &le.event
		key := ev.Key()
		report := func(sev Severity, rule, format string, args ...any) {
			issues = append(issues, Issue{Severity: sev, Rule: rule, Line: le.line, Message: fmt.Sprintf(format, args...)})
		}

		switch {
		case ev.Operation.IsCreate():
			if created.Has(key) {
				report(SeverityError, RuleDuplicateCreate, "duplicate %s for %s", ev.Operation, key)
			}
			created.Insert(key)
		case ev.Operation == model.OpReconciled:
			created.Insert(key)
		case Constrained(ev.EntityKind) && !created.Has(key):
			report(SeverityWarning, RuleMissingCreate, "%s for %s before any create", ev.Operation, key)
			// Report once per entity.
			created.Insert(key)
		}

		last, known := status[key]
		if ev.Operation == model.OpStatusChange {
			if ev.From != "" && known && ev.From != last {
				report(SeverityWarning, RuleFromMismatch, "%s claims from '%s' but last known status is '%s'", key, ev.From, last)
			}
			from := ev.From
			if from == "" {
				from = last
			}
			if from != "" && ev.To != "" && !LegalTransition(ev.EntityKind, from, ev.To) {
				report(SeverityError, RuleIllegalTransition, "%s cannot move from '%s' to '%s'", key, from, ev.To)
			}
		}

		switch {
		case ev.To != "":
			status[key] = ev.To
		case ev.Operation == model.OpArchive:
			status[key] = audit.ArchivedStatus
		}
	}
	return issues
}

func driftIssues(drifts []model.Drift) []Issue {
	issues := make([]Issue, 0, len(drifts))
	for _, d := range drifts {
		sev := SeverityWarning
		if d.Kind == model.DriftDiverged {
			sev = SeverityError
		}
		issues = append(issues, Issue{Severity: sev, Rule: RuleStateDrift, Message: d.String()})
	}
	return issues
}
